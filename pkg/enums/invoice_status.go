package enums

// InvoiceStatus tracks whether an invoice counts toward sales.
type InvoiceStatus string

const (
	InvoiceStatusFinalized InvoiceStatus = "finalized"
	InvoiceStatusVoid      InvoiceStatus = "void"
)

// IsValid reports whether the value is a known InvoiceStatus.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusFinalized, InvoiceStatusVoid:
		return true
	default:
		return false
	}
}
