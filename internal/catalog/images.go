package catalog

// PosterURL maps a poster path to a w500 image URL on the default image host.
// An empty path yields "", which callers treat as "no image".
func PosterURL(path string) string {
	return imageURL(DefaultImageBaseURL, PosterSize, path)
}

// BackdropURL maps a backdrop path to a full-size image URL.
func BackdropURL(path string) string {
	return imageURL(DefaultImageBaseURL, BackdropSize, path)
}

func imageURL(base, size, path string) string {
	if path == "" {
		return ""
	}
	return base + "/" + size + path
}
