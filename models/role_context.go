package models

// AdminContext is attached by the admin gate for handler consumption
type AdminContext struct {
	Identity AuthenticatedIdentity `json:"identity"`
	Admin    Admin                 `json:"admin"`
}

// OMILContext is attached by the OMIL gate
type OMILContext struct {
	Identity AuthenticatedIdentity `json:"identity"`
	Member   OMILMember            `json:"member"`
	OMIL     OMIL                  `json:"omil"`
}

// CompanyContext is attached by the company gate
type CompanyContext struct {
	Identity AuthenticatedIdentity `json:"identity"`
	Member   CompanyMember         `json:"member"`
	Company  Company               `json:"company"`
}
