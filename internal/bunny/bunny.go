package bunny

type Config struct {
	LibraryID        string `mapstructure:"library_id"`
	StreamBaseURL    string `mapstructure:"stream_base_url"`
	StreamAccessKey  string `mapstructure:"stream_access_key"`
	EmbedBaseURL     string `mapstructure:"embed_base_url"`
	StorageBaseURL   string `mapstructure:"storage_base_url"`
	StorageAccessKey string `mapstructure:"storage_access_key"`
	CDNURL           string `mapstructure:"cdn_url"`
}

type createVideoRequest struct {
	Title        string `json:"title"`
	CollectionID string `json:"collectionId"`
}

type createVideoResponse struct {
	GUID      string `json:"guid"`
	LibraryID int64  `json:"videoLibraryId"`
	Title     string `json:"title"`
}
