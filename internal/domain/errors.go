package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrBuildingNotFound     = errors.New("building not found")
	ErrMeterNotFound        = errors.New("meter not found")
	ErrBillNotFound         = errors.New("bill not found")
	ErrUsageNotFound        = errors.New("usage reading not found")
	ErrUploadNotFound       = errors.New("bill upload not found")
	ErrPriceNotFound        = errors.New("energy price not found")
	ErrNotOrgMember         = errors.New("not an organization member")
)
