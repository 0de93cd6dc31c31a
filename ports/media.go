package ports

import (
	"context"

	"github.com/web3market/marketd/core"
)

// ImageStore turns an uploaded data URL into a stored, publicly servable
// image.
type ImageStore interface {
	SaveProductImage(ctx context.Context, dataURL string) (*core.StoredImage, error)
}
