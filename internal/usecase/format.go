package usecase

import (
	"strings"

	"vehicle-bot/internal/domain"
)

const missingValue = "N/A"

type formatField struct {
	label  string
	value  func(domain.VehicleDetails) domain.Text
	suffix string
}

type formatSection struct {
	title  string
	fields []formatField
}

// vehicleSections fixes the layout of the vehicle summary. Order is part of
// the user-visible output.
var vehicleSections = []formatSection{
	{
		title: "*Vehicle registration Details:*",
		fields: []formatField{
			{label: "📆Registration Number", value: func(v domain.VehicleDetails) domain.Text { return v.RegNo }},
			{label: "🏢RTO Code", value: func(v domain.VehicleDetails) domain.Text { return v.RTOCode }},
			{label: "🏢Registration Authority", value: func(v domain.VehicleDetails) domain.Text { return v.RegAuthority }},
			{label: "🔎Chassis Number", value: func(v domain.VehicleDetails) domain.Text { return v.Chassis }},
			{label: "🔧Engine Number", value: func(v domain.VehicleDetails) domain.Text { return v.Engine }},
			{label: "📆Registration Date", value: func(v domain.VehicleDetails) domain.Text { return v.RegDate }},
		},
	},
	{
		title: "*vehicle address*",
		fields: []formatField{
			{label: "🏘️Permanent Address", value: func(v domain.VehicleDetails) domain.Text { return v.PermAddress }},
			{label: "📮Pincode", value: func(v domain.VehicleDetails) domain.Text { return v.Pincode }},
		},
	},
	{
		title: "*car details*",
		fields: []formatField{
			{label: "🚗Vehicle Class", value: func(v domain.VehicleDetails) domain.Text { return v.VehicleClass }},
			{label: "🏢Manufacturer", value: func(v domain.VehicleDetails) domain.Text { return v.Manufacturer }},
			{label: "🚙Vehicle Model", value: func(v domain.VehicleDetails) domain.Text { return v.Model }},
			{label: "🚘Vehicle Type", value: func(v domain.VehicleDetails) domain.Text { return v.VehicleType }},
			{label: "🛞Variant", value: func(v domain.VehicleDetails) domain.Text { return v.Variant }},
			{label: "⛽Fuel Type", value: func(v domain.VehicleDetails) domain.Text { return v.FuelType }},
			{label: "🔩Cubic Capacity", value: func(v domain.VehicleDetails) domain.Text { return v.CubicCapacity }, suffix: " cc"},
		},
	},
	{
		title: "*owners & insurance details*",
		fields: []formatField{
			{label: "🙍‍♂️Owner Name", value: func(v domain.VehicleDetails) domain.Text { return v.Owner }},
			{label: "👴Owner's Father Name", value: func(v domain.VehicleDetails) domain.Text { return v.OwnerFatherName }},
			{label: "💼Financer Name", value: func(v domain.VehicleDetails) domain.Text { return v.FinancerName }},
			{label: "📝Insurance Company", value: func(v domain.VehicleDetails) domain.Text { return v.InsuranceCompanyName }},
			{label: "🗒️insurance policy no", value: func(v domain.VehicleDetails) domain.Text { return v.InsurancePolicyNumber }},
			{label: "📒Insurance Valid Upto", value: func(v domain.VehicleDetails) domain.Text { return v.InsuranceUpto }},
		},
	},
}

// FormatVehicle renders the chat summary of a vehicle record. Absent or blank
// fields render as N/A, without the unit suffix.
func FormatVehicle(v domain.VehicleDetails) string {
	var b strings.Builder
	for i, section := range vehicleSections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section.title)
		b.WriteString("\n")
		for _, f := range section.fields {
			b.WriteString("\n*")
			b.WriteString(f.label)
			b.WriteString(":* ")
			b.WriteString(renderValue(f.value(v), f.suffix))
		}
	}
	return b.String()
}

func renderValue(t domain.Text, suffix string) string {
	if !t.Present() {
		return missingValue
	}
	return strings.TrimSpace(t.Value) + suffix
}
