package handlers

// Codes carried by ErrorResponse.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// Texts shown inside alert fragments. Every handler answering the same
// failure uses the same words.
const (
	MsgUnauthorized      = "Authorization error."
	MsgPromptEmpty       = "Description cannot be empty."
	MsgPromptTooLongFmt  = "Description too long (max %d characters)."
	MsgUserQuotaFmt      = "Daily limit of %d MMS reached. Try again tomorrow."
	MsgGlobalQuota       = "Global daily message limit reached. Try again tomorrow."
	MsgGenerationFailed  = "Could not generate the image. Try a different description."
	MsgDeliveryFailed    = "Could not send the MMS message."
	MsgAccepted          = "Your request was accepted. Check your phone!"
	MsgUnexpected        = "An unexpected server error occurred."
	MsgInProgress        = "This request is already being processed."
	MsgInvalidLogin      = "Invalid login or password."
	MsgPhoneNotFound     = "Could not find a phone number for this account."
	MsgMissingVerify     = "Missing verification data."
	MsgInvalidCode       = "The code is invalid or has expired."
	MsgEmailTaken        = "This email is already registered."
	MsgProfileAuth       = "Authorization error. Could not load profile."
	MsgProfileLoad       = "Could not load profile."
	MsgInvalidRequest    = "Invalid request data."
	MsgUsernameRequired  = "Username is required."
	MsgUsernameInvalid   = "Username may contain letters, digits, spaces, dots, dashes and underscores (max 32 characters)."
	MsgUsernameTaken     = "This username is already taken."
	MsgProfileUpdateFail = "Could not update profile."
	MsgProfileUpdated    = "Profile updated successfully."
	MsgImageIDRequired   = "Image ID is required"
	MsgImageNotFound     = "Image not found or access denied"
)
