package model

// CatalogPhoto 图片目录 API 返回的图片
type CatalogPhoto struct {
	ID             string      `json:"id"`
	Description    string      `json:"description"`
	AltDescription string      `json:"alt_description"`
	Likes          int         `json:"likes"`
	URLs           PhotoURLs   `json:"urls"`
	User           CatalogUser `json:"user"`
}

type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

type CatalogUser struct {
	Username     string       `json:"username"`
	Name         string       `json:"name"`
	ProfileImage ProfileImage `json:"profile_image"`
}

type ProfileImage struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// SearchResult 搜索接口的分页结果
type SearchResult struct {
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
	Results    []CatalogPhoto `json:"results"`
}

// Feed 按关注列表组装的动态
type Feed struct {
	Handles []string       `json:"handles"`
	Photos  []CatalogPhoto `json:"photos"`
	// 拉取失败被跳过的用户名
	Failed []string `json:"failed,omitempty"`
}
