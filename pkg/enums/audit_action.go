package enums

// AuditAction names the admin actions recorded in the audit log.
type AuditAction string

const (
	AuditStockRestore  AuditAction = "stock_restore"
	AuditProductRemove AuditAction = "product_remove"
)
