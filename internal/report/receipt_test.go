package report

import (
	"bytes"
	"strings"
	"testing"

	"dorm/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestConfirmed(t *testing.T) {
	st := student("1", core.DeptArts,
		payment("old", 100, core.NewDate(2026, 8, 1), true),
		payment("newest", 200, core.NewDate(2026, 10, 1), false),
		payment("latest", 300, core.NewDate(2026, 9, 1), true),
		payment("tie", 400, core.NewDate(2026, 9, 1), true),
	)
	p, ok := LatestConfirmed(st)
	require.True(t, ok)
	assert.Equal(t, "latest", p.ID)

	_, ok = LatestConfirmed(student("2", core.DeptArts, payment("x", 1, core.DateOf(fixedNow), false)))
	assert.False(t, ok)
}

func TestNewReceipt(t *testing.T) {
	st := student("1", core.DeptArts, payment("payment-7", 300, core.NewDate(2026, 10, 2), true))
	r, err := NewReceipt(st, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "PAYMENT-7", r.Number)
	assert.Equal(t, "18/10/2026", r.IssuedDate)
	assert.Equal(t, "10:30:00", r.IssuedTime)
	assert.Equal(t, "أكتوبر 2026", r.Period)
	assert.Equal(t, "02/10/2026", r.PaymentDate)
	assert.Equal(t, "300", r.Amount)
	assert.Equal(t, "three hundred", r.AmountWords)
	assert.Equal(t, []string{CopyStaff, CopyStudent}, r.Copies)
}

func TestNewReceipt_NoConfirmedPayment(t *testing.T) {
	_, err := NewReceipt(student("1", core.DeptArts), fixedNow)
	assert.ErrorIs(t, err, ErrNoConfirmedPayment)
}

func TestAmountInWords_Fraction(t *testing.T) {
	assert.Equal(t, "three hundred and 05/100", amountInWords(core.Money{Cents: 30005}))
}

func TestRenderReceipt(t *testing.T) {
	st := student("1", core.DeptArts, payment("p1", 300, core.NewDate(2026, 10, 2), true))
	st.Name = "<b>أحمد</b>"

	var buf bytes.Buffer
	require.NoError(t, RenderReceipt(&buf, st, fixedNow))
	html := buf.String()

	assert.Contains(t, html, CopyStaff)
	assert.Contains(t, html, CopyStudent)
	assert.Equal(t, 2, strings.Count(html, `class="receipt"`))
	assert.Contains(t, html, "&lt;b&gt;أحمد&lt;/b&gt;")
	assert.Contains(t, html, "three hundred")
}
