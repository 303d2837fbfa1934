package backend

// FileInfo is one manifest entry: where a file lives in the game tree, how
// big it is, what it should hash to, and where to fetch it.
type FileInfo struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Manifest is the server-side hash file listing every distributable file.
type Manifest struct {
	Files []FileInfo `json:"files"`
}

// TotalSize sums the sizes of all listed files.
func TotalSize(files []FileInfo) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

// LoginResponse is the account server's reply to a credentials POST. Field
// names follow the server's JSON casing.
type LoginResponse struct {
	Return         bool   `json:"Return"`
	ReturnCode     int    `json:"ReturnCode"`
	Msg            string `json:"Msg"`
	CharacterCount string `json:"CharacterCount"`
	Permission     int    `json:"Permission"`
	Privilege      int    `json:"Privilege"`
	UserNo         int    `json:"UserNo"`
	UserName       string `json:"UserName"`
	AuthKey        string `json:"AuthKey"`
}

// AuthInfo is the subset of login state the game process needs at launch.
type AuthInfo struct {
	AuthKey        string
	UserName       string
	UserNo         int
	CharacterCount string
}
