package musicgen

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// KindGeneration tags the errors caused by the song contents or a rhythm
// generator, as opposed to programming errors.
const KindGeneration ftag.Kind = "music_generation"

// NewGenerationError returns a generation error with a message for the user.
func NewGenerationError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fault.New(msg, fmsg.WithDesc(msg, msg), ftag.With(KindGeneration))
}

// WrapGenerationError tags err as a generation error, adding a message for
// the user. It returns nil if err is nil.
func WrapGenerationError(err error, userMsg string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, fmsg.WithDesc(userMsg, userMsg), ftag.With(KindGeneration))
}

// IsGenerationError reports whether err is or wraps a generation error.
func IsGenerationError(err error) bool {
	return err != nil && ftag.Get(err) == KindGeneration
}

// UserMessage returns the message of err meant for the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return err.Error()
}
