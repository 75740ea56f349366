// Package passenger translates passenger records between the shape used by the
// public booking form and the field names and formats stored in Odoo.
package passenger

import (
	"fmt"
	"strings"

	"github.com/georgivlv/passenger-portal/internal/odoo"
)

// Internal (Odoo) field names.
const (
	fieldID                    = "id"
	fieldToken                 = "token"
	fieldFirstName             = "first_name"
	fieldLastName              = "last_name"
	fieldSex                   = "sex"
	fieldMaritalStatus         = "marital_status"
	fieldBirthDate             = "birth_date"
	fieldNationality           = "nationality"
	fieldEmail                 = "email"
	fieldPhone                 = "phone"
	fieldHomeAddress           = "home_address"
	fieldJobPosition           = "job_position"
	fieldEmployer              = "employer"
	fieldPassportNumber        = "passport_number"
	fieldPassportIssueDate     = "passport_issue_date"
	fieldPassportExpiryDate    = "passport_expiration_date"
	fieldRoomType              = "room_type"
	fieldRoommate              = "roommate_name"
	fieldDietaryRequirements   = "dietary_requirements"
	fieldMedicalConditions     = "medical_conditions"
	fieldEmergencyContactName  = "emergency_contact_name"
	fieldEmergencyContactPhone = "emergency_contact_phone"
	fieldNotes                 = "notes"
	fieldPartner               = "partner_id"
	fieldDeparture             = "departure_id"

	fieldDepartureName  = "name"
	fieldDepartureBegin = "date_begin"
	fieldDepartureEnd   = "date_end"
)

// Ref is a decoded many2one value.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Passenger is the external representation returned by a load.
type Passenger struct {
	ID                    int64  `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Sex                   string `json:"sex"`
	MaritalStatus         string `json:"marital_status"`
	DateOfBirth           string `json:"date_of_birth"`
	Nationality           string `json:"nationality"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	HomeAddress           string `json:"home_address"`
	JobPosition           string `json:"job_position"`
	Employer              string `json:"employer"`
	PassportNumber        string `json:"passport_number"`
	PassportIssueDate     string `json:"passport_issue_date"`
	PassportExpiryDate    string `json:"passport_expiry_date"`
	RoomType              string `json:"room_type"`
	Roommate              string `json:"roommate"`
	DietaryRequirements   string `json:"dietary_requirements"`
	MedicalConditions     string `json:"medical_conditions"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	Notes                 string `json:"notes"`
	Partner               *Ref   `json:"partner"`
}

// Departure is the external representation of the booked trip.
type Departure struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// LoadFields are the passenger fields requested from Odoo on load.
var LoadFields = odoo.Fields{
	fieldID, fieldFirstName, fieldLastName, fieldSex, fieldMaritalStatus,
	fieldBirthDate, fieldNationality, fieldEmail, fieldPhone, fieldHomeAddress,
	fieldJobPosition, fieldEmployer, fieldPassportNumber, fieldPassportIssueDate,
	fieldPassportExpiryDate, fieldRoomType, fieldRoommate, fieldDietaryRequirements,
	fieldMedicalConditions, fieldEmergencyContactName, fieldEmergencyContactPhone,
	fieldNotes, fieldPartner, fieldDeparture,
}

// IDFields is the projection used to collect the ids that belong to a token.
var IDFields = odoo.Fields{fieldID}

// DepartureFields are the departure fields requested from Odoo.
var DepartureFields = odoo.Fields{fieldID, fieldDepartureName, fieldDepartureBegin, fieldDepartureEnd}

// TokenDomain filters passengers by booking token.
func TokenDomain(token string) odoo.Domain {
	return odoo.Domain{{fieldToken, "=", token}}
}

// IDDomain filters a model by record id.
func IDDomain(id int64) odoo.Domain {
	return odoo.Domain{{fieldID, "=", id}}
}

type valueKind int

const (
	kindText valueKind = iota
	kindDate
	kindSex
	kindMarital
)

type editableField struct {
	internal string
	kind     valueKind
}

// editable is the save allow-list, keyed by external name. Keys not listed
// here never reach Odoo.
var editable = map[string]editableField{
	"first_name":           {fieldFirstName, kindText},
	"last_name":            {fieldLastName, kindText},
	"sex":                  {fieldSex, kindSex},
	"marital_status":       {fieldMaritalStatus, kindMarital},
	"date_of_birth":        {fieldBirthDate, kindDate},
	"passport_issue_date":  {fieldPassportIssueDate, kindDate},
	"passport_expiry_date": {fieldPassportExpiryDate, kindDate},
	"email":                {fieldEmail, kindText},
	"nationality":          {fieldNationality, kindText},
	"home_address":         {fieldHomeAddress, kindText},
	"job_position":         {fieldJobPosition, kindText},
	"employer":             {fieldEmployer, kindText},
	"passport_number":      {fieldPassportNumber, kindText},
	"notes":                {fieldNotes, kindText},
}

// ToInternal builds the Odoo write values for one submitted passenger entry.
// Only allow-listed keys holding strings contribute; everything else, the id
// included, is ignored. An empty date clears the field; an empty enum is skipped.
func ToInternal(entry map[string]interface{}) odoo.Values {
	values := odoo.Values{}
	for key, raw := range entry {
		rule, ok := editable[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}

		switch rule.kind {
		case kindDate:
			if strings.TrimSpace(s) == "" {
				values[rule.internal] = false
				continue
			}
			values[rule.internal] = ToISODate(strings.TrimSpace(s))
		case kindSex:
			if v, ok := NormalizeSex(s); ok {
				values[rule.internal] = v
			}
		case kindMarital:
			if v, ok := NormalizeMaritalStatus(s); ok {
				values[rule.internal] = v
			}
		default:
			values[rule.internal] = s
		}
	}
	return values
}

// ToExternal maps one Odoo passenger record to the form shape.
func ToExternal(rec odoo.Record) Passenger {
	p := Passenger{
		ID:                    rec.ID(),
		FirstName:             text(rec, fieldFirstName),
		LastName:              text(rec, fieldLastName),
		Sex:                   text(rec, fieldSex),
		MaritalStatus:         text(rec, fieldMaritalStatus),
		DateOfBirth:           FromISODate(text(rec, fieldBirthDate)),
		Nationality:           text(rec, fieldNationality),
		Email:                 text(rec, fieldEmail),
		Phone:                 text(rec, fieldPhone),
		HomeAddress:           text(rec, fieldHomeAddress),
		JobPosition:           text(rec, fieldJobPosition),
		Employer:              text(rec, fieldEmployer),
		PassportNumber:        text(rec, fieldPassportNumber),
		PassportIssueDate:     FromISODate(text(rec, fieldPassportIssueDate)),
		PassportExpiryDate:    FromISODate(text(rec, fieldPassportExpiryDate)),
		RoomType:              text(rec, fieldRoomType),
		Roommate:              text(rec, fieldRoommate),
		DietaryRequirements:   text(rec, fieldDietaryRequirements),
		MedicalConditions:     text(rec, fieldMedicalConditions),
		EmergencyContactName:  text(rec, fieldEmergencyContactName),
		EmergencyContactPhone: text(rec, fieldEmergencyContactPhone),
		Notes:                 text(rec, fieldNotes),
	}
	if ref, ok := DecodeRef(rec[fieldPartner]); ok {
		p.Partner = &ref
	}
	return p
}

// DepartureRef returns the departure a passenger record points to.
func DepartureRef(rec odoo.Record) (Ref, bool) {
	return DecodeRef(rec[fieldDeparture])
}

// DepartureFromRecord maps an Odoo departure record to the external shape.
func DepartureFromRecord(rec odoo.Record) Departure {
	return Departure{
		ID:        rec.ID(),
		Name:      text(rec, fieldDepartureName),
		StartDate: FromISODate(text(rec, fieldDepartureBegin)),
		EndDate:   FromISODate(text(rec, fieldDepartureEnd)),
	}
}

// DecodeRef decodes a many2one value [id, name]. Any other shape, Odoo's
// false included, is absent.
func DecodeRef(v interface{}) (Ref, bool) {
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return Ref{}, false
	}
	id, ok := odoo.AsInt64(pair[0])
	if !ok {
		return Ref{}, false
	}
	name, _ := pair[1].(string)
	return Ref{ID: id, Name: name}, true
}

// text reads a scalar field, mapping Odoo's false (unset) to "".
func text(rec odoo.Record, name string) string {
	switch v := rec[name].(type) {
	case nil, bool:
		return ""
	case string:
		return v
	case float64, int64, int:
		return fmt.Sprint(v)
	default:
		return ""
	}
}
