package services

import "errors"

var (
	ErrNotFound = errors.New("requested resource not found")

	ErrValidationFailed   = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// The store refused access to a path. Handlers surface it as a degraded-mode banner.
	ErrStorePermissionDenied = errors.New("data store denied access")

	ErrUniversityNotFound     = errors.New("university not found")
	ErrUniversityNameConflict = errors.New("university name is already in use")
	ErrUniversityInUse        = errors.New("university is referenced by matches; withdraw it instead")
	ErrLogoUploadDisabled     = errors.New("logo uploads are not configured")
	ErrUnsupportedLogoType    = errors.New("unsupported logo content type")

	ErrPlayerNotFound           = errors.New("player not found")
	ErrPlayerSportNotRegistered = errors.New("university is not registered for this sport")
	ErrRosterFull               = errors.New("roster for this sport is full")

	ErrMatchNotFound                = errors.New("match not found")
	ErrMatchInvalidStatusTransition = errors.New("invalid match status transition")
	ErrMatchNotLive                 = errors.New("match is not live")
	ErrMatchNotCompleted            = errors.New("match is not completed")
	ErrMatchNotEditable             = errors.New("only scheduled matches can be edited")
	ErrMatchSameTeams               = errors.New("a match needs two different universities")
	ErrMatchInPast                  = errors.New("match cannot be scheduled in the past")

	ErrAdminRequestNotFound  = errors.New("admin request not found")
	ErrAdminRequestDecided   = errors.New("admin request has already been decided")
	ErrAdminRequestDuplicate = errors.New("a pending request for this email already exists")
	ErrAdminNotFound         = errors.New("admin account not found")
	ErrAdminEmailConflict    = errors.New("email address is already in use")
	ErrCannotDeleteSelf      = errors.New("admins cannot delete their own account")
	ErrLastSuperAdmin        = errors.New("cannot remove the last super admin")
)
