package handler

// LinkResponse reports the outcome of a link or relink request. Guidance
// carries the URL of the ownership subpage when verification failed, so the
// caller can tell the user what to create or fix.
type LinkResponse struct {
	Result       string `json:"result"`
	GameID       string `json:"game_id,omitempty"`
	WikiUsername string `json:"wiki_username,omitempty"`
	Guidance     string `json:"guidance,omitempty"`
}

// LookupResponse resolves one side of an active link.
type LookupResponse struct {
	GameID       string `json:"game_id"`
	WikiUsername string `json:"wiki_username"`
}

// UnlinkResponse reports whether an active link was removed.
type UnlinkResponse struct {
	Removed bool `json:"removed"`
}

// CooldownResponse tells the caller how long to wait before retrying.
type CooldownResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}
