package http

import (
	"net/http"
	"strings"
)

// User-facing messages.
const (
	msgInvalidCredentials = `بيانات غير صحيحة. استخدم "admin" / "123456"`
	msgNoConfirmedPayment = "لا توجد مدفوعات مؤكدة لهذا الطالب."
	msgStudentNotFound    = "الطالب غير موجود."
	msgPaymentNotFound    = "الدفعة غير موجودة."
	msgInvalidRequest     = "صيغة الطلب غير صالحة."
	msgInvalidAmount      = "المبلغ غير صالح."
	msgRateLimited        = "طلبات كثيرة جداً. حاول مرة أخرى لاحقاً."
	msgExportFailed       = "تعذر إنشاء الملف."

	msgStudentAdded     = "تمت إضافة الطالب بنجاح."
	msgStudentUpdated   = "تم تحديث بيانات الطالب."
	msgStudentDeleted   = "تم نقل الطالب إلى قائمة المحذوفين."
	msgStudentRestored  = "تمت استعادة الطالب."
	msgPaymentAdded     = "تمت إضافة الدفعة."
	msgPaymentConfirmed = "تم تأكيد الدفعة."
	msgPaymentDeleted   = "تم حذف الدفعة."
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether r was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsHTML reports whether the client navigates as a browser would.
func wantsHTML(r *http.Request) bool {
	if isHTMX(r) {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html")
}

// redirect sends htmx clients an HX-Redirect and everyone else a 303.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
