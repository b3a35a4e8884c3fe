package enums

// UserType distinguishes supplier accounts from buyers. Identity itself lives
// in an external service; the type travels in the access token claims.
type UserType string

const (
	UserTypeShop  UserType = "shop"
	UserTypeBuyer UserType = "buyer"
	UserTypeStaff UserType = "staff"
)

var validUserTypes = []UserType{
	UserTypeShop,
	UserTypeBuyer,
	UserTypeStaff,
}

// String implements fmt.Stringer.
func (u UserType) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserType.
func (u UserType) IsValid() bool {
	for _, candidate := range validUserTypes {
		if candidate == u {
			return true
		}
	}
	return false
}
