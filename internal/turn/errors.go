package turn

import (
	"errors"
	"fmt"

	"github.com/kilofrakh/mostaqlproj1/internal/reply"
	"github.com/kilofrakh/mostaqlproj1/internal/tutor"
)

// Kind classifies a failed turn for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	// KindNoSpeech means the recording held no recognizable speech.
	KindNoSpeech
	KindUpstream
	KindParse
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNoSpeech:
		return "no_speech"
	case KindUpstream:
		return "upstream"
	case KindParse:
		return "parse"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

// User-facing messages.
const (
	MsgNoAudio     = "لم يتم إرسال أي ملف صوتي."
	MsgEmptyAudio  = "الملف الصوتي فارغ."
	MsgNoSpeech    = "لم يتم التعرف على أي كلام. يرجى المحاولة مرة أخرى."
	MsgParse       = "خطأ في معالجة الرد. يرجى المحاولة مرة أخرى."
	MsgUpstream    = "تعذّر الاتصال بخدمة المعلّم. يرجى المحاولة لاحقاً."
	MsgSpeech      = "تعذّر توليد الصوت. يرجى المحاولة مرة أخرى."
	MsgSpeechSetup = "لم يتم ضبط خدمة تحويل النص إلى كلام على الخادم."
	MsgInternal    = "حدث خطأ غير متوقع. يرجى المحاولة مرة أخرى."
	MsgDidNotHear  = "لم أسمع شيئاً. هل تستطيع إعادة المحاولة؟"
)

// Error is a turn that ended in the Errored state.
type Error struct {
	Kind  Kind
	Stage Stage
	// Msg is safe to show to the learner.
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("turn %s at %s: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("turn %s at %s: %s", e.Kind, e.Stage, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Errors not produced by this package are
// classified by their cause.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	var ue *tutor.UpstreamError
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, tutor.ErrEmptyUtterance):
		return KindValidation
	case errors.Is(err, reply.ErrParse):
		return KindParse
	case errors.As(err, &ue):
		return KindUpstream
	}
	return KindInternal
}

// Message returns the learner-facing text for err.
func Message(err error) string {
	var te *Error
	if errors.As(err, &te) && te.Msg != "" {
		return te.Msg
	}
	switch KindOf(err) {
	case KindValidation:
		return MsgEmptyAudio
	case KindParse:
		return MsgParse
	case KindUpstream:
		return MsgUpstream
	}
	return MsgInternal
}

func replyError(err error) *Error {
	return &Error{Kind: KindOf(err), Msg: Message(err), Err: err}
}
