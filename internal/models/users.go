package models

// User — профиль пользователя, как его отдаёт бэкенд.
type User struct {
	ID               string `json:"id,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Role             Role   `json:"role,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// DisplayName — имя для приветствия: ФИО или название организации.
func (u User) DisplayName() string {
	if u.Role == RoleOrganization && u.OrganizationName != "" {
		return u.OrganizationName
	}

	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}

	if name == "" {
		return u.Email
	}

	return name
}

// UpdateProfileRequest — тело PUT /users/me; пустые поля не отправляются.
type UpdateProfileRequest struct {
	Phone            string `json:"phone,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}
