package report

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"dorm/internal/core"

	"github.com/divan/num2words"
)

// ErrNoConfirmedPayment is returned when a receipt is requested for a
// student without any confirmed payment.
var ErrNoConfirmedPayment = errors.New("no confirmed payment")

// Receipt copy labels, printed in this order.
const (
	CopyStaff   = "نسخة الموظف"
	CopyStudent = "نسخة الطالب"
)

//go:embed receipt.html
var receiptHTML string

var receiptTemplate = template.Must(template.New("receipt").Parse(receiptHTML))

// Receipt is the data printed on a payment receipt.
type Receipt struct {
	Number      string
	IssuedDate  string
	IssuedTime  string
	Student     core.Student
	Period      string
	PaymentDate string
	Amount      string
	AmountWords string
	Copies      []string
}

// LatestConfirmed returns the confirmed payment with the latest date. Among
// payments sharing that date the one listed first wins.
func LatestConfirmed(st core.Student) (core.Payment, bool) {
	confirmed := make([]core.Payment, 0, len(st.Payments))
	for _, p := range st.Payments {
		if p.Confirmed {
			confirmed = append(confirmed, p)
		}
	}
	if len(confirmed) == 0 {
		return core.Payment{}, false
	}
	sort.SliceStable(confirmed, func(i, j int) bool {
		return confirmed[i].Date.After(confirmed[j].Date.Time)
	})
	return confirmed[0], true
}

// NewReceipt prepares the receipt for the latest confirmed payment of st.
func NewReceipt(st core.Student, now time.Time) (Receipt, error) {
	p, ok := LatestConfirmed(st)
	if !ok {
		return Receipt{}, ErrNoConfirmedPayment
	}
	return Receipt{
		Number:      strings.ToUpper(p.ID),
		IssuedDate:  now.Format("02/01/2006"),
		IssuedTime:  now.Format("15:04:05"),
		Student:     st,
		Period:      core.MonthLabel(now),
		PaymentDate: p.Date.Format("02/01/2006"),
		Amount:      core.FormatAmount(p.Amount),
		AmountWords: amountInWords(p.Amount),
		Copies:      []string{CopyStaff, CopyStudent},
	}, nil
}

// RenderReceipt writes the printable receipt of st to w.
func RenderReceipt(w io.Writer, st core.Student, now time.Time) error {
	r, err := NewReceipt(st, now)
	if err != nil {
		return err
	}
	if err := receiptTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}

func amountInWords(m core.Money) string {
	words := num2words.Convert(int(m.Cents / 100))
	if frac := m.Cents % 100; frac != 0 {
		words += fmt.Sprintf(" and %02d/100", frac)
	}
	return words
}
