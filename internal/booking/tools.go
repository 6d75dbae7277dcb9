package booking

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var idSchema = jsonschema.Definition{
	Type:        jsonschema.String,
	Description: "Numeric identifier as returned by an earlier tool call",
}

// Catalog is the tool list offered on the first completion of every turn.
func Catalog() []openai.Tool {
	return []openai.Tool{
		function(ToolGetClinics,
			"Search clinics by name or city. Call without a query to list clinics.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"query": {Type: jsonschema.String, Description: "Clinic name or city, e.g. Pune"},
				},
			}),
		function(ToolGetDoctors,
			"List doctors, optionally filtered by clinic and/or specialization.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"clinic_id":      idSchema,
					"specialization": {Type: jsonschema.String, Description: "Specialization name, e.g. Cardiology"},
				},
			}),
		function(ToolCheckAvailability,
			"Check a doctor's free appointment slots on a date.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"doctor_id": idSchema,
					"date":      {Type: jsonschema.String, Description: "Date in YYYY-MM-DD format"},
				},
				Required: []string{"doctor_id", "date"},
			}),
		function(ToolBookAppointment,
			"Book an appointment once the patient has confirmed doctor, date and time.",
			jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name":      {Type: jsonschema.String, Description: "Patient full name"},
					"phone":     {Type: jsonschema.String, Description: "Patient phone number"},
					"date":      {Type: jsonschema.String, Description: "Date in YYYY-MM-DD format"},
					"time":      {Type: jsonschema.String, Description: "Slot start time exactly as listed, e.g. 09:30 AM"},
					"doctor_id": idSchema,
					"clinic_id": idSchema,
					"reason":    {Type: jsonschema.String, Description: "Reason for the visit"},
				},
				Required: []string{"name", "phone", "date", "time", "doctor_id"},
			}),
	}
}

func function(name, description string, params jsonschema.Definition) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}
