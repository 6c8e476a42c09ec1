package model

import "chopshop/internal/domain"

type TransformationType string

const (
	TransformationFaceSwap     TransformationType = "face-swap"
	TransformationAvatar       TransformationType = "avatar"
	TransformationImageToVideo TransformationType = "image-to-video"
)

// Transformation describes one entry of the closed catalog: its fixed credit
// cost and whether the request must carry a second (target) image.
type Transformation struct {
	Type           TransformationType
	Name           string
	Description    string
	Credits        int64
	RequiresTarget bool
}

// Catalog is ordered for display. Costs are fixed and known before any
// submission; validation and the credit gate both read from here.
var Catalog = []Transformation{
	{
		Type:           TransformationFaceSwap,
		Name:           "Face Swap",
		Description:    "Swap faces between two images",
		Credits:        1,
		RequiresTarget: true,
	},
	{
		Type:        TransformationAvatar,
		Name:        "AI Avatar",
		Description: "Generate unique AI avatars",
		Credits:     3,
	},
	{
		Type:        TransformationImageToVideo,
		Name:        "Image to Video",
		Description: "Animate your static images",
		Credits:     5,
	},
}

// LookupTransformation resolves a catalog entry by type.
func LookupTransformation(t TransformationType) (Transformation, error) {
	for _, tr := range Catalog {
		if tr.Type == t {
			return tr, nil
		}
	}
	return Transformation{}, domain.ErrUnknownTransformation
}
