package compositor

// EventType names an input or window-system notification.
type EventType string

const (
	EventKey    EventType = "key"
	EventMouse  EventType = "mouse"
	EventButton EventType = "button"
	EventFocus  EventType = "focus"
	EventResize EventType = "resize"
	EventClose  EventType = "close"
)

// Event is queued on a server window and drained by its client. Fields not
// relevant to Type are left zero.
type Event struct {
	Type EventType `json:"type"`
	// Code is the keysym for key events and the button number for button events.
	Code    uint32 `json:"code,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`
	// X, Y are window-local for pointer events.
	X       int   `json:"x,omitempty"`
	Y       int   `json:"y,omitempty"`
	Buttons uint8 `json:"buttons,omitempty"`
	Focused bool  `json:"focused,omitempty"`
	// W, H carry the new size for resize events.
	W int `json:"w,omitempty"`
	H int `json:"h,omitempty"`
}

// IsPointer reports whether the event is routed by pointer position.
func (e Event) IsPointer() bool {
	return e.Type == EventMouse || e.Type == EventButton
}
