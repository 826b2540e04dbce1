package domain

// LockReq is the body of a lock request. The server treats Nonce and Secrets
// as opaque strings; encryption happens on the client.
type LockReq struct {
	OpenDuration uint64  `json:"open_duration"` // seconds
	UnlocksLeft  *uint32 `json:"unlocks_left,omitempty"`
	Nonce        string  `json:"nonce"`
	Secrets      string  `json:"secrets"`
}

type LockRes struct {
	Href string `json:"href"`
}

// Contents is what a safe holds and what an unlock returns.
type Contents struct {
	Nonce   string `json:"nonce"`
	Secrets string `json:"secrets"`
}

// SafePath returns the path a safe is unlocked at.
func SafePath(id string) string {
	return "/safes/" + id
}
