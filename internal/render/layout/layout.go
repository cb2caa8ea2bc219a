package layout

import "image"

// Normalize ensures Min is <= Max on both axes.
func Normalize(rect image.Rectangle) image.Rectangle {
	if rect.Min.X > rect.Max.X {
		rect.Min.X, rect.Max.X = rect.Max.X, rect.Min.X
	}
	if rect.Min.Y > rect.Max.Y {
		rect.Min.Y, rect.Max.Y = rect.Max.Y, rect.Min.Y
	}
	return rect
}

// AnchorTopLeft returns a rectangle of size (widthPx,heightPx) placed in the top-left of rect.
func AnchorTopLeft(rect image.Rectangle, widthPx, heightPx int) image.Rectangle {
	rect = Normalize(rect)
	widthPx = clamp(widthPx, 0, rect.Dx())
	heightPx = clamp(heightPx, 0, rect.Dy())
	return image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+widthPx, rect.Min.Y+heightPx)
}

// CenterVertical places a (widthPx,heightPx) box at the left edge of rect,
// centered vertically. The box is clamped to rect.
func CenterVertical(rect image.Rectangle, widthPx, heightPx int) image.Rectangle {
	box := AnchorTopLeft(rect, widthPx, heightPx)
	return box.Add(image.Pt(0, (rect.Dy()-box.Dy())/2))
}

// Center places a (widthPx,heightPx) box in the middle of rect. A box wider
// than rect is left-aligned so its start stays visible.
func Center(rect image.Rectangle, widthPx, heightPx int) image.Rectangle {
	rect = Normalize(rect)
	x := rect.Min.X
	if widthPx < rect.Dx() {
		x += (rect.Dx() - widthPx) / 2
	}
	y := rect.Min.Y
	if heightPx < rect.Dy() {
		y += (rect.Dy() - heightPx) / 2
	}
	return image.Rect(x, y, x+widthPx, y+heightPx)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
