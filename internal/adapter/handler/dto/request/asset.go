package request

type DeleteAssetRequest struct {
	URL string `json:"url" binding:"required,max=2048"`
}
