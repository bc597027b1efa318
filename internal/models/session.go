package models

// PKCESession is the ephemeral state created by BeginAuthorization and
// consumed exactly once by the OAuth callback. Keyed by the state token in
// the session cache; never persisted to the database.
type PKCESession struct {
	UserID       string `json:"userId"`
	CodeVerifier string `json:"codeVerifier"`
}
