package quota

import (
	"testing"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

func TestRecordFuelStampsCompletionOnApproval(t *testing.T) {
	_, conn := newTestEngine(t)
	recorder := NewRecorder(conn)

	owner := createUser(t, conn, "100000000000000010")
	vehicle := createVehicle(t, conn, owner, "16-900-100")
	station := models.Station{Name: "Naftal Centre", Code: "NAF-016", Address: "Rue 1", Wilaya: "Alger", Commune: "Centre", IsActive: true}
	if err := conn.Create(&station).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}
	operator := createUser(t, conn, "")

	liters := 35.5
	approved, errRecord := recorder.RecordFuel(vehicle.ID, station.ID, operator.ID, models.TxApproved, &liters, nil)
	if errRecord != nil {
		t.Fatalf("RecordFuel approved: %v", errRecord)
	}
	if approved.CompletedAt == nil {
		t.Fatal("approved transaction missing CompletedAt")
	}
	if approved.Vehicle == nil || approved.Station == nil {
		t.Fatal("relations not loaded on recorded transaction")
	}
	if approved.Liters == nil || *approved.Liters != 35.5 {
		t.Fatalf("Liters = %v", approved.Liters)
	}

	reason := "Quota exceeded"
	denied, errRecord := recorder.RecordFuel(vehicle.ID, station.ID, operator.ID, models.TxDenied, nil, &reason)
	if errRecord != nil {
		t.Fatalf("RecordFuel denied: %v", errRecord)
	}
	if denied.CompletedAt != nil {
		t.Fatal("denied transaction must not carry CompletedAt")
	}
	if denied.DenialReason == nil || *denied.DenialReason != "Quota exceeded" {
		t.Fatalf("DenialReason = %v", denied.DenialReason)
	}
}

func TestRecordGasDefaultsExchangeType(t *testing.T) {
	_, conn := newTestEngine(t)
	recorder := NewRecorder(conn)

	owner := createUser(t, conn, "")
	household := createHousehold(t, conn, owner, "200000000000000010", "Alger", 3)
	station := models.Station{Name: "Depot Gaz", Code: "GAZ-016", Address: "Rue 2", Wilaya: "Alger", Commune: "Centre", IsActive: true}
	if err := conn.Create(&station).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}
	operator := createUser(t, conn, "")

	tx, errRecord := recorder.RecordGas(household.ID, station.ID, operator.ID, models.TxApproved, 2, "", nil)
	if errRecord != nil {
		t.Fatalf("RecordGas: %v", errRecord)
	}
	if tx.ExchangeType != models.ExchangeNew {
		t.Fatalf("ExchangeType = %q, want NEW", tx.ExchangeType)
	}
	if tx.Quantity != 2 {
		t.Fatalf("Quantity = %d", tx.Quantity)
	}
	if tx.Household == nil || tx.Station == nil {
		t.Fatal("relations not loaded")
	}
}

func TestLastFillAndLastGasPurchase(t *testing.T) {
	_, conn := newTestEngine(t)
	recorder := NewRecorder(conn)

	owner := createUser(t, conn, "")
	vehicle := createVehicle(t, conn, owner, "16-900-200")
	household := createHousehold(t, conn, owner, "200000000000000011", "Alger", 3)

	none, errLast := recorder.LastFill(vehicle.ID)
	if errLast != nil {
		t.Fatalf("LastFill: %v", errLast)
	}
	if none != nil {
		t.Fatalf("LastFill with no history = %+v, want nil", none)
	}
	noPurchase, errLast := recorder.LastGasPurchase(household.ID)
	if errLast != nil {
		t.Fatalf("LastGasPurchase: %v", errLast)
	}
	if noPurchase != nil {
		t.Fatalf("LastGasPurchase with no history = %+v, want nil", noPurchase)
	}

	station := models.Station{Name: "Naftal Est", Code: "NAF-116", Address: "Rue 3", Wilaya: "Alger", Commune: "Est", IsActive: true}
	if err := conn.Create(&station).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}
	operator := createUser(t, conn, "")

	liters := 20.0
	if _, err := recorder.RecordFuel(vehicle.ID, station.ID, operator.ID, models.TxApproved, &liters, nil); err != nil {
		t.Fatalf("RecordFuel: %v", err)
	}
	reason := "over limit"
	if _, err := recorder.RecordFuel(vehicle.ID, station.ID, operator.ID, models.TxDenied, nil, &reason); err != nil {
		t.Fatalf("RecordFuel denied: %v", err)
	}

	last, errLast := recorder.LastFill(vehicle.ID)
	if errLast != nil {
		t.Fatalf("LastFill: %v", errLast)
	}
	if last == nil || last.Status != models.TxApproved {
		t.Fatalf("LastFill = %+v, want the approved fill", last)
	}
	if last.Station == nil || last.Station.Code != "NAF-116" {
		t.Fatal("LastFill station not loaded")
	}
}
