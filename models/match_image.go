package models

type ImageType string

const (
	ImageIda     ImageType = "ida"
	ImageVuelta  ImageType = "vuelta"
	ImageGeneral ImageType = "general"
)

func (t ImageType) Valid() bool {
	switch t {
	case ImageIda, ImageVuelta, ImageGeneral:
		return true
	}
	return false
}

type MatchImage struct {
	ID          ID        `json:"id"`
	MatchID     ID        `json:"matchId"`
	ImageType   ImageType `json:"imageType"`
	ImageURL    string    `json:"imageUrl"`
	Description string    `json:"description,omitempty"`
}
