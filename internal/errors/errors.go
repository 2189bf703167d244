// Package errors contains helpers for classifying errors without losing their cause.
package errors

// With returns an error that reports the message of cause while matching both cause
// and tag under errors.Is and errors.As. Storage engines use it to mark driver failures
// with a package sentinel.
func With(cause, tag error) error {
	switch {
	case cause == nil && tag == nil:
		return nil
	case tag == nil:
		return cause
	case cause == nil:
		return tag
	}
	return &tagged{cause: cause, tag: tag}
}

type tagged struct {
	cause error
	tag   error
}

func (t *tagged) Error() string {
	return t.cause.Error()
}

func (t *tagged) Unwrap() []error {
	return []error{t.tag, t.cause}
}
