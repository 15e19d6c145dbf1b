package async

// Views maps each state of a tracker to display output. NotStarted may be
// nil, in which case the Pending view is used. The other fields are required.
type Views[T any] struct {
	NotStarted func() string
	Pending    func() string
	Failed     func(message string) string
	Succeeded  func(value T) string
}

// Render is a total dispatch from s to the matching view.
func Render[T any](s State[T], v Views[T]) string {
	switch s.status {
	case Succeeded:
		return v.Succeeded(s.value)
	case Failed:
		return v.Failed(s.message)
	case Pending:
		return v.Pending()
	default:
		if v.NotStarted != nil {
			return v.NotStarted()
		}
		return v.Pending()
	}
}
