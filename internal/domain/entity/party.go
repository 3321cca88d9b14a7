package entity

// Location ubicación con códigos absolutos (provincia "3", cantón "302", distrito "30205").
type Location struct {
	Province string
	Canton   string
	District string
	Address  string // Otras señas
}

// Party instantánea de emisor o receptor tomada al crear el comprobante.
// No cambia aunque luego cambie la empresa o el cliente de origen.
type Party struct {
	Name           string
	TaxIDType      string
	TaxID          string
	CommercialName string
	ActivityCode   string
	Location       Location
	PhoneCountry   string
	Phone          string
	Email          string
}
