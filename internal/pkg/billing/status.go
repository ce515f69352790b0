package billing

import (
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
)

// StatusBucket groups gateway payment statuses by what reconciliation has
// to do with them.
type StatusBucket int

const (
	// BucketIntermediate covers in-flight statuses (waiting, confirming,
	// sending...). They are acknowledged and logged, nothing changes.
	BucketIntermediate StatusBucket = iota
	// BucketSuccess marks the payment as settled on-chain.
	BucketSuccess
	// BucketFinalFailure marks the payment as definitively lost.
	BucketFinalFailure
)

// ClassifyPaymentStatus sorts a gateway payment_status into its bucket.
// Unknown statuses are treated as intermediate so a new gateway status can
// never flip an invoice into a terminal state by accident.
func ClassifyPaymentStatus(status string) StatusBucket {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "finished", "confirmed":
		return BucketSuccess
	case "failed", "expired", "refunded":
		return BucketFinalFailure
	default:
		return BucketIntermediate
	}
}

// failureInvoiceStatus maps a final-failure gateway status to the invoice
// status it terminates in. The gateway reporting "expired" means the payment
// window lapsed unpaid; everything else counts as canceled.
func failureInvoiceStatus(paymentStatus string) string {
	if strings.ToLower(strings.TrimSpace(paymentStatus)) == "expired" {
		return models.InvoiceStatusExpired
	}
	return models.InvoiceStatusCanceled
}
