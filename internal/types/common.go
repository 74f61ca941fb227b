package types

// HTTP Header Constants
const (
	HeaderUID           = "uid"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
)

// Authentication Constants
const (
	BearerPrefix      = "Bearer "
	AccessTokenCookie = "access_token"
	ClaimKey          = "claim"
)

// UserCtxName is the fiber Locals key holding the authenticated UserContext.
const UserCtxName = "user"
