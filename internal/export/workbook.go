// Package export renders a user's savings ledger as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

const (
	SheetSubscriptions = "Subscriptions"
	SheetTransactions  = "Transactions"

	dateLayout = "2006-01-02 15:04"
)

var (
	subscriptionHeader = []any{
		"id", "plan_id", "plan_name", "start_date", "next_payment_date",
		"total_paid", "total_target", "progress_pct", "status",
	}
	transactionHeader = []any{
		"id", "date", "amount", "status", "ref", "type", "provider", "plan_name", "subscription_id",
	}
)

// Ledger is the data exported for one user.
type Ledger struct {
	UserID        string
	Subscriptions []domain.Subscription
	Transactions  []domain.LedgerTransaction
	// PlanNames maps plan ids to display names; unknown ids export blank.
	PlanNames map[string]string
}

// Workbook builds the two-sheet workbook. The caller closes the file.
func Workbook(l Ledger) (*excelize.File, error) {
	f := excelize.NewFile()

	first := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(first, SheetSubscriptions); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetTransactions); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	subRows := make([][]any, 0, len(l.Subscriptions))
	for _, s := range l.Subscriptions {
		subRows = append(subRows, []any{
			s.ID,
			s.PlanID,
			l.PlanNames[s.PlanID],
			s.StartDate,
			formatTime(s.NextPaymentDate),
			s.TotalPaid,
			s.TotalTarget,
			progressPercent(s),
			string(s.Status),
		})
	}
	if err := writeSheet(f, SheetSubscriptions, subscriptionHeader, subRows); err != nil {
		_ = f.Close()
		return nil, err
	}

	txRows := make([][]any, 0, len(l.Transactions))
	for _, tx := range l.Transactions {
		txRows = append(txRows, []any{
			tx.ID,
			formatTime(tx.Date),
			tx.Amount,
			string(tx.Status),
			tx.Ref,
			string(tx.Type),
			string(tx.Provider),
			tx.PlanName,
			tx.SubscriptionID,
		})
	}
	if err := writeSheet(f, SheetTransactions, transactionHeader, txRows); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, l Ledger) error {
	f, err := Workbook(l)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// FileName is the suggested download name for a user's export.
func FileName(userID string, at time.Time) string {
	return fmt.Sprintf("paysmall_%s_%s.xlsx", userID, at.Format("20060102_150405"))
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func progressPercent(s domain.Subscription) float64 {
	return float64(int(s.Progress()*1000+0.5)) / 10
}
