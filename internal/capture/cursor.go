package capture

import (
	"image"

	"github.com/BurntSushi/xgb/xfixes"
)

// compositeCursor alpha-blends the current pointer image onto the frame.
// originX/originY are the frame's origin in root coordinates, so the cursor
// lands at its on-screen position. XFixes hands back premultiplied ARGB.
func (e *X11Engine) compositeCursor(frame *image.RGBA, originX, originY int) {
	reply, err := xfixes.GetCursorImage(e.conn).Reply()
	if err != nil {
		return
	}

	cw, ch := int(reply.Width), int(reply.Height)
	// Top-left of the cursor image in frame coordinates.
	cx := int(reply.X) - int(reply.Xhot) - originX
	cy := int(reply.Y) - int(reply.Yhot) - originY

	b := frame.Bounds()
	for y := 0; y < ch; y++ {
		fy := cy + y
		if fy < 0 || fy >= b.Dy() {
			continue
		}
		for x := 0; x < cw; x++ {
			fx := cx + x
			if fx < 0 || fx >= b.Dx() {
				continue
			}

			px := reply.CursorImage[y*cw+x]
			a := uint32(px >> 24)
			if a == 0 {
				continue
			}
			sr := uint32(px >> 16 & 0xff)
			sg := uint32(px >> 8 & 0xff)
			sb := uint32(px & 0xff)

			off := fy*frame.Stride + fx*4
			if a == 255 {
				frame.Pix[off] = uint8(sr)
				frame.Pix[off+1] = uint8(sg)
				frame.Pix[off+2] = uint8(sb)
				continue
			}
			inv := 255 - a
			frame.Pix[off] = uint8(sr + uint32(frame.Pix[off])*inv/255)
			frame.Pix[off+1] = uint8(sg + uint32(frame.Pix[off+1])*inv/255)
			frame.Pix[off+2] = uint8(sb + uint32(frame.Pix[off+2])*inv/255)
		}
	}
}
