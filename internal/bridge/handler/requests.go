package handler

// LinkRequest asks to link a game identity to a wiki account.
type LinkRequest struct {
	GameID       string `json:"game_id"`
	WikiUsername string `json:"wiki_username"`
}

// RelinkRequest asks to reactivate a historical link for a game identity.
type RelinkRequest struct {
	GameID string `json:"game_id"`
}
