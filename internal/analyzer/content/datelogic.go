package content

import (
	"fmt"
	"time"

	"github.com/docforensic/docforensic/pkg/types"
)

var epoch2000 = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// checkDateLogic applies spec §4.4's date logic checks across every date
// found in the text, relative to now and to the (first) invoice-typed
// date.
func checkDateLogic(result *types.ModuleResult, dates []ExtractedDate, now time.Time) {
	var invoiceDate *time.Time
	for i := range dates {
		if dates[i].Type == DateTypeInvoice && invoiceDate == nil {
			invoiceDate = &dates[i].Value
		}
	}

	for _, d := range dates {
		if d.Value.After(now.AddDate(0, 0, 365)) {
			result.AddFlag(types.NewFlag(types.SeverityCritical, "CONTENT_FAR_FUTURE_DATE",
				fmt.Sprintf("Date %s is more than a year in the future", d.Value.Format("2006-01-02"))).
				WithDetails(map[string]interface{}{"date": d.Value.Format("2006-01-02"), "context": d.Context}))
		}
		if d.Value.Before(epoch2000) {
			result.AddFlag(types.NewFlag(types.SeverityMedium, "CONTENT_VERY_OLD_DATE",
				fmt.Sprintf("Date %s predates 2000-01-01", d.Value.Format("2006-01-02"))).
				WithDetails(map[string]interface{}{"date": d.Value.Format("2006-01-02"), "context": d.Context}))
		}
		if d.Type == DateTypeInvoice && d.Value.After(now.AddDate(0, 0, 1)) {
			result.AddFlag(types.NewFlag(types.SeverityCritical, "CONTENT_FUTURE_INVOICE_DATE",
				"Invoice date is in the future").
				WithDetails(map[string]interface{}{"date": d.Value.Format("2006-01-02")}))
		}
	}

	if invoiceDate == nil {
		return
	}
	for _, d := range dates {
		switch d.Type {
		case DateTypeService:
			if d.Value.After(invoiceDate.AddDate(0, 0, 1)) {
				result.AddFlag(types.NewFlag(types.SeverityHigh, "CONTENT_ANACHRONISM_SERVICE",
					"Service date falls after the invoice date").
					WithDetails(map[string]interface{}{
						"service_date": d.Value.Format("2006-01-02"),
						"invoice_date": invoiceDate.Format("2006-01-02"),
					}))
			}
		case DateTypeDue:
			if d.Value.Before(invoiceDate.AddDate(0, 0, -1)) {
				result.AddFlag(types.NewFlag(types.SeverityHigh, "CONTENT_ANACHRONISM_DUE",
					"Due date falls before the invoice date").
					WithDetails(map[string]interface{}{
						"due_date":     d.Value.Format("2006-01-02"),
						"invoice_date": invoiceDate.Format("2006-01-02"),
					}))
			}
		case DateTypeOrder:
			if d.Value.After(invoiceDate.AddDate(0, 0, 1)) {
				result.AddFlag(types.NewFlag(types.SeverityHigh, "CONTENT_ANACHRONISM_ORDER",
					"Order date falls after the invoice date").
					WithDetails(map[string]interface{}{
						"order_date":   d.Value.Format("2006-01-02"),
						"invoice_date": invoiceDate.Format("2006-01-02"),
					}))
			}
		}
	}
}
