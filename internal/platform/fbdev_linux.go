//go:build linux

package platform

import (
	"bytes"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	fbioGetVScreenInfo = 0x4600
	fbioGetFScreenInfo = 0x4602
)

type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

// Mirrors struct fb_var_screeninfo from linux/fb.h.
type fbVarScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Transp fbBitfield
	Nonstd                   uint32
	Activate                 uint32
	Height, Width            uint32
	AccelFlags               uint32
	Pixclock                 uint32
	LeftMargin, RightMargin  uint32
	UpperMargin, LowerMargin uint32
	HsyncLen, VsyncLen       uint32
	Sync                     uint32
	Vmode                    uint32
	Rotate                   uint32
	Colorspace               uint32
	Reserved                 [4]uint32
}

// Mirrors struct fb_fix_screeninfo; unsigned long fields are uintptr.
type fbFixScreenInfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

// Framebuffer is a Linux fbdev special file written with pwrite.
type Framebuffer struct {
	fd   int
	info Info
	// base is the byte offset of the visible page in a panned virtual
	// framebuffer.
	base int64
}

var _ Device = (*Framebuffer)(nil)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// OpenFramebuffer opens path and reads its geometry. Only 32 bpp
// framebuffers are accepted.
func OpenFramebuffer(path string) (*Framebuffer, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var vinfo fbVarScreenInfo
	if err := ioctl(fd, fbioGetVScreenInfo, unsafe.Pointer(&vinfo)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("FBIOGET_VSCREENINFO on %s: %w", path, err)
	}
	var finfo fbFixScreenInfo
	if err := ioctl(fd, fbioGetFScreenInfo, unsafe.Pointer(&finfo)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("FBIOGET_FSCREENINFO on %s: %w", path, err)
	}

	if vinfo.BitsPerPixel != 32 {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: %d bits per pixel: %w", path, vinfo.BitsPerPixel, ErrUnsupportedFormat)
	}

	order := OrderBGRA
	if vinfo.Red.Offset == 0 {
		order = OrderRGBA
	}

	stride := int(finfo.LineLength)
	if stride == 0 {
		stride = int(vinfo.XResVirtual) * 4
	}

	base, err := visibleBase(&vinfo, &finfo, stride)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	name := string(bytes.TrimRight(finfo.ID[:], "\x00"))
	if name == "" {
		name = path
	}

	return &Framebuffer{
		fd:   fd,
		base: base,
		info: Info{
			Name:          name,
			Width:         int(vinfo.XRes),
			Height:        int(vinfo.YRes),
			Stride:        stride,
			BytesPerPixel: 4,
			Order:         order,
		},
	}, nil
}

// visibleBase returns the offset of the panned visible area and checks that
// it fits in the mapped memory when the driver reports its size.
func visibleBase(vinfo *fbVarScreenInfo, finfo *fbFixScreenInfo, stride int) (int64, error) {
	base := int64(vinfo.YOffset)*int64(stride) + int64(vinfo.XOffset)*4
	if vinfo.XRes == 0 || vinfo.YRes == 0 || finfo.SmemLen == 0 {
		return base, nil
	}
	end := base + int64(vinfo.YRes-1)*int64(stride) + int64(vinfo.XRes)*4
	if end > int64(finfo.SmemLen) {
		return 0, fmt.Errorf("visible area at offset %d+%d ends past framebuffer memory (%d bytes)",
			vinfo.XOffset, vinfo.YOffset, finfo.SmemLen)
	}
	return base, nil
}

func (f *Framebuffer) Info() Info { return f.info }

func (f *Framebuffer) WriteAt(p []byte, off int64) (int, error) {
	if err := checkBounds(f.info, len(p), off); err != nil {
		return 0, err
	}
	return unix.Pwrite(f.fd, p, f.base+off)
}

func (f *Framebuffer) Close() error {
	return unix.Close(f.fd)
}
