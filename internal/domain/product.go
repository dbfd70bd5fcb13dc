package domain

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

type ImageKind string

const (
	ImageRemote ImageKind = "remote"
	ImageLocal  ImageKind = "local"
)

// ImageSource is either a remote URL or a key into the bundled product assets.
// It is decided once, when the product is read from the catalog.
type ImageSource struct {
	Kind ImageKind `json:"kind"`
	Ref  string    `json:"ref"`
}

func RemoteImage(rawURL string) ImageSource {
	return ImageSource{Kind: ImageRemote, Ref: rawURL}
}

func LocalImage(resourceKey string) ImageSource {
	return ImageSource{Kind: ImageLocal, Ref: resourceKey}
}

// ClassifyImageRef turns a stored image reference into an ImageSource.
// Absolute http(s) URLs are remote, everything else is a local resource key.
func ClassifyImageRef(ref string) ImageSource {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https") {
		return RemoteImage(ref)
	}
	return LocalImage(ref)
}

// URL resolves the source to something a client can fetch. Local keys are
// served from assetBase.
func (s ImageSource) URL(assetBase string) string {
	if s.Kind == ImageRemote {
		return s.Ref
	}
	if s.Ref == "" {
		return ""
	}
	return strings.TrimRight(assetBase, "/") + "/" + url.PathEscape(s.Ref) + ".png"
}

type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image ImageSource     `json:"image"`
}

// Equal compares every field. Prices compare numerically, so 10 and 10.00 match.
func (p Product) Equal(o Product) bool {
	return p.ID == o.ID &&
		p.Name == o.Name &&
		p.Price.Equal(o.Price) &&
		p.Image == o.Image
}
