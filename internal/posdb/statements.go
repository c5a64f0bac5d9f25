package posdb

// SQL the writer and reader run against the Gicater POS schema. Kept in one
// place so schema changes stay reviewable.
const (
	insertOrderHead = `
		INSERT INTO order_head (
			check_id, pos_name, check_name, order_start_time,
			should_amount, actual_amount, is_make, table_id, table_name, eat_type, remark,
			service_amount, status
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10, $11,
			$12, $13
		) RETURNING order_head_id`

	selectMenuItemNames = `
		SELECT item_id, item_name1 FROM menu_item WHERE item_id = ANY($1)`

	insertOrderDetail = `
		INSERT INTO order_detail (
			order_head_id, check_id, menu_item_id, menu_item_name,
			product_price, quantity, actual_price, sales_amount,
			description, order_time, is_make
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11
		)`

	insertPrintRecord = `
		INSERT INTO order_detail (
			order_head_id, check_id, menu_item_id, menu_item_name,
			product_price, actual_price, order_employee_name,
			pos_device_id, pos_name, order_time
		) VALUES (
			$1, 1, -3, $2,
			0, 0, $3,
			0, $4, now()
		)`

	insertPaymentRecord = `
		INSERT INTO order_detail (
			order_head_id, check_id, menu_item_id, menu_item_name,
			product_price, actual_price, quantity,
			order_employee_name, pos_device_id, pos_name, order_time,
			discount_id
		) VALUES (
			$1, 1, -2, $2,
			0, 0, 0,
			$3, 0, $4, now(),
			0
		) RETURNING order_detail_id`

	selectTenderMedia = `
		SELECT tender_media_id FROM tender_media WHERE tender_media_name ILIKE '%kody%' LIMIT 1`

	insertPayment = `
		INSERT INTO payment (
			order_head_id, check_id, tender_media_id, total,
			employee_id, payment_time, pos_device_id,
			order_detail_id
		) VALUES (
			$1, 1, $2, $3,
			0, now(), 0,
			$4
		)`

	selectStatusUpdates = `
		SELECT order_head_id, check_name, status, is_make, order_end_time
		FROM order_head
		WHERE pos_name = $1
		AND order_start_time >= $2
		AND (status >= 1 OR is_make = 1)`
)
