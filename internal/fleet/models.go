// Package fleet defines the domain records exchanged with the dispatch
// backend's collections.
package fleet

import (
	"encoding/json"
	"fmt"
)

// RelationID references a related record. Depending on the fields a
// query requests, the backend returns either the bare ID or the
// expanded object; decoding accepts both and keeps the ID. Marshalling
// always emits the bare ID, which is what writes expect.
type RelationID string

// UnmarshalJSON implements json.Unmarshaler
func (r *RelationID) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = RelationID(id)
		return nil
	}

	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &expanded); err != nil {
		return fmt.Errorf("relation is neither an id nor an expanded object: %s", data)
	}
	*r = RelationID(expanded.ID)
	return nil
}

// Collection names as exposed by the backend
const (
	CollectionVehicles        = "vehicles"
	CollectionDriverProfiles  = "driver_profiles"
	CollectionMissions        = "missions"
	CollectionMaintenanceLogs = "maintenance_logs"
	CollectionNotifications   = "notifications"
	CollectionLocationLogs    = "location_logs"
)

// Vehicle statuses
const (
	VehicleIdle        = "Idle"
	VehicleDeployed    = "Deployed"
	VehicleHQ          = "HQ"
	VehicleMaintenance = "Maintenance"
)

// Vehicle types
const (
	VehicleTypeAmbulance      = "Ambulance"
	VehicleTypeFireTruck      = "Fire Truck"
	VehicleTypeSupplyTruck    = "Supply Truck"
	VehicleTypeRescueVehicle  = "Rescue Vehicle"
	VehicleTypeCommandVehicle = "Command Vehicle"
	VehicleTypeOther          = "Other"
)

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Vehicle represents a fleet vehicle record
type Vehicle struct {
	ID                 string       `json:"id,omitempty"`
	PlateNumber        string       `json:"plate_number"`
	Type               string       `json:"type"`
	Status             string       `json:"status"`
	AssignedDriverID   RelationID   `json:"assigned_driver_id,omitempty"`
	LastKnownLocation  *Coordinates `json:"last_known_location,omitempty"`
	FuelLevel          *float64     `json:"fuel_level,omitempty"`
	MaintenanceDueDate string       `json:"maintenance_due_date,omitempty"`
}

// Driver availability statuses
const (
	DriverAvailable = "Available"
	DriverOnMission = "On Mission"
	DriverOffDuty   = "Off Duty"
)

// DriverProfile represents a driver's operational profile
type DriverProfile struct {
	ID                 string     `json:"id,omitempty"`
	UserID             RelationID `json:"user_id"`
	LicenseNumber      string     `json:"license_number"`
	AvailabilityStatus string     `json:"availability_status"`
	AssignedVehicleID  RelationID `json:"assigned_vehicle_id,omitempty"`
	PerformanceScore   *float64   `json:"performance_score,omitempty"`
	HoursLogged        *float64   `json:"hours_logged,omitempty"`
}

// Mission statuses
const (
	MissionPlanned    = "Planned"
	MissionInProgress = "In Progress"
	MissionCompleted  = "Completed"
	MissionDelayed    = "Delayed"
)

// Mission represents a dispatch mission record
type Mission struct {
	ID                string     `json:"id,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Status            string     `json:"status"`
	StartTime         string     `json:"start_time,omitempty"`
	EndTime           string     `json:"end_time,omitempty"`
	AssignedVehicleID RelationID `json:"assigned_vehicle_id,omitempty"`
	AssignedDriverID  RelationID `json:"assigned_driver_id,omitempty"`
	CreatedBy         string     `json:"created_by,omitempty"`
}

// MaintenanceLog represents a vehicle maintenance report
type MaintenanceLog struct {
	ID              string `json:"id,omitempty"`
	VehicleID       string `json:"vehicle_id"`
	IssueReported   string `json:"issue_reported"`
	ReportedDate    string `json:"reported_date,omitempty"`
	ResolvedDate    string `json:"resolved_date,omitempty"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`
	ReportedBy      string `json:"reported_by,omitempty"`
}

// Notification types
const (
	NotificationAlert       = "Alert"
	NotificationBroadcast   = "Broadcast"
	NotificationSOS         = "SOS"
	NotificationInstruction = "Instruction"
)

// Notification delivery statuses
const (
	NotificationDelivered = "Delivered"
	NotificationRead      = "Read"
)

// Notification represents a message between dispatch and drivers
type Notification struct {
	ID          string `json:"id,omitempty"`
	SenderID    string `json:"sender_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp,omitempty"`
	Status      string `json:"status,omitempty"`
}

// LocationLog represents a single reported device position
type LocationLog struct {
	ID        string   `json:"id,omitempty"`
	VehicleID string   `json:"vehicle_id,omitempty"`
	DriverID  string   `json:"driver_id,omitempty"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timestamp string   `json:"timestamp,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
}
