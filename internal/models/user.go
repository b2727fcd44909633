package models

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleChef     = "chef"
)

// Actor est l'utilisateur à l'origine d'une requête, extrait du JWT
type Actor struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Token  string `json:"-"`
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != ""
}

// CanShop : seul un client authentifié peut modifier un panier
func (a Actor) CanShop() bool {
	return a.IsAuthenticated() && a.Role == RoleCustomer
}
