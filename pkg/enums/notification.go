package enums

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationOrderUpdate    NotificationType = "order_update"
	NotificationRiderDispatch  NotificationType = "rider_dispatch"
	NotificationGoodsReturn    NotificationType = "goods_return"
	NotificationPaymentReceipt NotificationType = "payment_receipt"
)

// RecipientKind distinguishes who a notification is addressed to.
type RecipientKind string

const (
	RecipientCustomer RecipientKind = "customer"
	RecipientRider    RecipientKind = "rider"
)
