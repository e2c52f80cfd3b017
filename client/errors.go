package client

import (
	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/ipc"
)

var (
	// ErrResourceUnavailable is returned by New when neither the server nor
	// a fallback device could be reached.
	ErrResourceUnavailable = ipc.ErrResourceUnavailable
	// ErrChannelBroken is reported by Err once the window has closed.
	ErrChannelBroken = ipc.ErrChannelBroken
	// ErrMalformedMessage marks a message the server refused.
	ErrMalformedMessage = ipc.ErrMalformedMessage
)

type (
	Color = gfx.Color
	Rect  = gfx.Rect
	Image = gfx.Image

	Event     = compositor.Event
	EventType = compositor.EventType
	Flags     = compositor.Flags
	ZOrder    = compositor.ZOrder
)

const (
	EventKey    = compositor.EventKey
	EventMouse  = compositor.EventMouse
	EventButton = compositor.EventButton
	EventFocus  = compositor.EventFocus
	EventResize = compositor.EventResize
	EventClose  = compositor.EventClose

	ZBack   = compositor.ZBack
	ZNormal = compositor.ZNormal
	ZFront  = compositor.ZFront
)

// RGB returns an opaque colour.
func RGB(r, g, b uint8) Color { return gfx.RGB(r, g, b) }

// RGBA returns a colour with straight alpha.
func RGBA(r, g, b, a uint8) Color { return gfx.RGBA(r, g, b, a) }

// NewRect clamps negative sizes to zero.
func NewRect(x, y, w, h int) Rect { return gfx.NewRect(x, y, w, h) }
