package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies extraction failures so callers can distinguish
// "this content cannot be converted" from transient fetch problems.
type Kind string

const (
	KindAccessDenied           Kind = "access_denied"
	KindLoginRequired          Kind = "login_required"
	KindUnsupportedContentType Kind = "unsupported_content_type"
	KindTooShort               Kind = "too_short"
	KindExtractionFailed       Kind = "extraction_failed"
)

// Failure sub-reasons for KindExtractionFailed.
const (
	ReasonCaptcha    = "captcha"
	ReasonPaywall    = "paywall"
	ReasonJavaScript = "javascript"
	ReasonGeneric    = "generic"
)

// Error is a typed extraction failure.
type Error struct {
	Kind    Kind
	Reason  string // Sub-reason for KindExtractionFailed
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsKind reports whether err is an extraction Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == kind
}

func errAccessDenied() *Error {
	return &Error{Kind: KindAccessDenied, Message: "access denied - site blocks automated requests"}
}

func errLoginRequired() *Error {
	return &Error{Kind: KindLoginRequired, Message: "article requires login"}
}

func errUnsupportedContentType(contentType string) *Error {
	msg := fmt.Sprintf("unsupported content type %q", contentType)
	switch {
	case strings.Contains(contentType, "image/"):
		msg = "URL points to an image, not an article"
	case strings.Contains(contentType, "application/pdf"):
		msg = "PDF files are not supported"
	case strings.Contains(contentType, "video/"), strings.Contains(contentType, "audio/"):
		msg = "media files are not supported"
	}
	return &Error{Kind: KindUnsupportedContentType, Message: msg}
}

// errTooShort includes the measured length and the threshold, plus an
// og:type hint when the page does not even claim to be an article.
func errTooShort(length, threshold int, ogTypeHint string) *Error {
	hint := ""
	if ogTypeHint != "" {
		hint = fmt.Sprintf(" (og:type is %q)", ogTypeHint)
	}
	return &Error{
		Kind: KindTooShort,
		Message: fmt.Sprintf("content too short (%d chars, need %d)%s; this may be a landing page, not an article",
			length, threshold, hint),
	}
}

func errExtractionFailed(reason, message string) *Error {
	return &Error{Kind: KindExtractionFailed, Reason: reason, Message: message}
}
