package domain

const (
	PrincipalCtxKey = "st-principal"
	CSRFTokenCtxKey = "st-csrf-token"
)

const (
	SessionCookieName = "st_session"
)

const (
	EventCardCreated = "card-created"
	EventCardUpdated = "card-updated"
	EventCardDeleted = "card-deleted"
	EventCardMoved   = "card-moved"
	EventListCreated = "list-created"
	EventListDeleted = "list-deleted"
)
