package svgtree

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svglog"
	"github.com/benoitkugler/svgrender/svgpath"
)

func (b *builder) lowerImage(e *svgdom.Element, parent *Group, inherited style) {
	st := b.inheritStyle(e, inherited)
	if !st.visible {
		return
	}
	href, ok := e.Href()
	if !ok {
		return
	}
	img, err := b.loadImage(href)
	if err != nil {
		svglog.Logger().Warn("cannot load image, skipping element", "err", err)
		return
	}

	x, _ := e.Length("x", b.lengthCtx(b.tree.ViewBox.W))
	y, _ := e.Length("y", b.lengthCtx(b.tree.ViewBox.H))
	w, okW := e.Length("width", b.lengthCtx(b.tree.ViewBox.W))
	h, okH := e.Length("height", b.lengthCtx(b.tree.ViewBox.H))
	size := img.Bounds().Size()
	if !okW {
		w = float64(size.X)
	}
	if !okH {
		h = float64(size.Y)
	}
	if w <= 0 || h <= 0 {
		return
	}

	aspect, _ := e.AspectRatio("preserveAspectRatio")
	rendering := b.opts.ImageRendering
	switch e.AttrOr("image-rendering", "") {
	case "pixelated", "optimizeSpeed", "crisp-edges":
		rendering = RenderingPixelated
	case "smooth", "optimizeQuality":
		rendering = RenderingSmooth
	}

	node := &ImageNode{
		Image:     img,
		Transform: svgpath.Identity,
		Rect:      svgpath.Bounds{X: x, Y: y, W: w, H: h},
		Aspect:    aspect,
		Rendering: rendering,
	}
	if m, ok := e.Transform("transform"); ok {
		node.Transform = m
	}
	b.appendWrapped(e, parent, node, true)
}

// loadImage decodes the image behind an href: an inline data URI,
// the configured resolver, or a file under ResourcesDir.
func (b *builder) loadImage(href string) (image.Image, error) {
	if strings.HasPrefix(href, "data:") {
		return decodeDataURI(href)
	}
	if b.opts != nil && b.opts.ImageHrefResolver != nil {
		return b.opts.ImageHrefResolver(href, b.opts)
	}
	dir := ""
	if b.opts != nil {
		dir = b.opts.ResourcesDir
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(href)))
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func decodeDataURI(uri string) (image.Image, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errBadDataURI
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]
	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, err
		}
		data = decoded
	} else {
		data = []byte(payload)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

var errBadDataURI = errors.New("malformed data URI")
