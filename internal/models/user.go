package models

// User representa a un miembro del personal o dueño de un salón.
// Los usuarios viven en una ruta global y se filtran por el campo tenantId,
// no por la ruta; un usuario sin tenant asignado es visible durante el alta.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
	Owner    bool   `json:"owner"`
	Allowed  bool   `json:"allowed"`
	TenantID string `json:"tenant_id"`
}
