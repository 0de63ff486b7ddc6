package usecase

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"vehicle-bot/internal/domain"
)

func sampleVehicle() domain.VehicleDetails {
	return domain.VehicleDetails{
		RegNo:                 domain.NewText("KA01AB1234"),
		RTOCode:               domain.NewText("KA01"),
		RegAuthority:          domain.NewText("BANGALORE (CENTRAL), KARNATAKA"),
		Chassis:               domain.NewText("MA3EWDE1S00123456"),
		Engine:                domain.NewText("K12MN1234567"),
		RegDate:               domain.NewText("15-Jan-2019"),
		PermAddress:           domain.NewText("12 MG ROAD, BENGALURU"),
		Pincode:               domain.NewText("560001"),
		VehicleClass:          domain.NewText("Motor Car(LMV)"),
		Manufacturer:          domain.NewText("MARUTI SUZUKI INDIA LTD"),
		Model:                 domain.NewText("SWIFT VXI"),
		VehicleType:           domain.NewText("Non-Transport"),
		Variant:               domain.NewText("VXI"),
		FuelType:              domain.NewText("PETROL"),
		CubicCapacity:         domain.NewText("1197"),
		Owner:                 domain.NewText("A KUMAR"),
		OwnerFatherName:       domain.NewText("R KUMAR"),
		FinancerName:          domain.NewText("HDFC BANK LTD"),
		InsuranceCompanyName:  domain.NewText("ACKO GENERAL INSURANCE"),
		InsurancePolicyNumber: domain.NewText("POL123456789"),
		InsuranceUpto:         domain.NewText("14-Jan-2027"),
	}
}

const goldenVehicle = `*Vehicle registration Details:*

*📆Registration Number:* KA01AB1234
*🏢RTO Code:* KA01
*🏢Registration Authority:* BANGALORE (CENTRAL), KARNATAKA
*🔎Chassis Number:* MA3EWDE1S00123456
*🔧Engine Number:* K12MN1234567
*📆Registration Date:* 15-Jan-2019

*vehicle address*

*🏘️Permanent Address:* 12 MG ROAD, BENGALURU
*📮Pincode:* 560001

*car details*

*🚗Vehicle Class:* Motor Car(LMV)
*🏢Manufacturer:* MARUTI SUZUKI INDIA LTD
*🚙Vehicle Model:* SWIFT VXI
*🚘Vehicle Type:* Non-Transport
*🛞Variant:* VXI
*⛽Fuel Type:* PETROL
*🔩Cubic Capacity:* 1197 cc

*owners & insurance details*

*🙍‍♂️Owner Name:* A KUMAR
*👴Owner's Father Name:* R KUMAR
*💼Financer Name:* HDFC BANK LTD
*📝Insurance Company:* ACKO GENERAL INSURANCE
*🗒️insurance policy no:* POL123456789
*📒Insurance Valid Upto:* 14-Jan-2027`

func TestFormatVehicle_Golden(t *testing.T) {
	got := FormatVehicle(sampleVehicle())
	if diff := cmp.Diff(goldenVehicle, got); diff != "" {
		t.Fatalf("formatted vehicle mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatVehicle_Deterministic(t *testing.T) {
	v := sampleVehicle()
	require.Equal(t, FormatVehicle(v), FormatVehicle(v))
	require.Equal(t, sampleVehicle(), v)
}

func TestFormatVehicle_MissingFieldsRenderPlaceholder(t *testing.T) {
	v := sampleVehicle()
	v.FinancerName = domain.Text{}
	v.CubicCapacity = domain.Text{}
	v.Engine = domain.NewText("   ")

	got := FormatVehicle(v)
	require.Contains(t, got, "*💼Financer Name:* N/A\n")
	require.Contains(t, got, "*🔩Cubic Capacity:* N/A\n")
	require.Contains(t, got, "*🔧Engine Number:* N/A\n")
	require.NotContains(t, got, "N/A cc")
}

func TestFormatVehicle_EmptyRecord(t *testing.T) {
	got := FormatVehicle(domain.VehicleDetails{})
	require.Equal(t, 21, strings.Count(got, ":* N/A"))
	require.True(t, strings.HasPrefix(got, "*Vehicle registration Details:*\n"))
}

func TestFormatVehicle_SectionOrder(t *testing.T) {
	got := FormatVehicle(sampleVehicle())
	prev := -1
	for _, section := range vehicleSections {
		idx := strings.Index(got, section.title)
		require.Greater(t, idx, prev, section.title)
		prev = idx
	}
}
