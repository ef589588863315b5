package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/JHMR18/truck-drive/internal/fleet"
	"github.com/JHMR18/truck-drive/internal/user"
)

// VehiclesClient provides CRUD over the vehicles collection
type VehiclesClient struct {
	client *Client
}

// NewVehiclesClient creates a new vehicles client
func NewVehiclesClient(client *Client) *VehiclesClient {
	return &VehiclesClient{client: client}
}

// List returns all vehicles with the assigned driver expanded
func (v *VehiclesClient) List(ctx context.Context) ([]fleet.Vehicle, error) {
	var vehicles []fleet.Vehicle
	q := Query{Fields: []string{"*", "assigned_driver_id.*"}}
	if err := v.client.ListItems(ctx, fleet.CollectionVehicles, q, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// Create creates a vehicle and returns the stored record
func (v *VehiclesClient) Create(ctx context.Context, vehicle fleet.Vehicle) (*fleet.Vehicle, error) {
	var created fleet.Vehicle
	if err := v.client.CreateItem(ctx, fleet.CollectionVehicles, vehicle, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update applies a partial update to a vehicle
func (v *VehiclesClient) Update(ctx context.Context, id string, patch map[string]interface{}) (*fleet.Vehicle, error) {
	var updated fleet.Vehicle
	if err := v.client.UpdateItem(ctx, fleet.CollectionVehicles, id, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a vehicle
func (v *VehiclesClient) Delete(ctx context.Context, id string) error {
	return v.client.DeleteItem(ctx, fleet.CollectionVehicles, id)
}

// MissionsClient provides CRUD over the missions collection
type MissionsClient struct {
	client *Client
}

// NewMissionsClient creates a new missions client
func NewMissionsClient(client *Client) *MissionsClient {
	return &MissionsClient{client: client}
}

// List returns all missions, newest start time first, with assignments expanded
func (m *MissionsClient) List(ctx context.Context) ([]fleet.Mission, error) {
	var missions []fleet.Mission
	q := Query{
		Fields: []string{"*", "assigned_vehicle_id.*", "assigned_driver_id.*"},
		Sort:   []string{"-start_time"},
	}
	if err := m.client.ListItems(ctx, fleet.CollectionMissions, q, &missions); err != nil {
		return nil, err
	}
	return missions, nil
}

// Create creates a mission and returns the stored record
func (m *MissionsClient) Create(ctx context.Context, mission fleet.Mission) (*fleet.Mission, error) {
	var created fleet.Mission
	if err := m.client.CreateItem(ctx, fleet.CollectionMissions, mission, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update applies a partial update to a mission
func (m *MissionsClient) Update(ctx context.Context, id string, patch map[string]interface{}) (*fleet.Mission, error) {
	var updated fleet.Mission
	if err := m.client.UpdateItem(ctx, fleet.CollectionMissions, id, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DriverProfilesClient provides CRUD over the driver_profiles collection
type DriverProfilesClient struct {
	client *Client
}

// NewDriverProfilesClient creates a new driver profiles client
func NewDriverProfilesClient(client *Client) *DriverProfilesClient {
	return &DriverProfilesClient{client: client}
}

// List returns all driver profiles with user and vehicle expanded
func (d *DriverProfilesClient) List(ctx context.Context) ([]fleet.DriverProfile, error) {
	var profiles []fleet.DriverProfile
	q := Query{Fields: []string{"*", "user_id.*", "assigned_vehicle_id.*"}}
	if err := d.client.ListItems(ctx, fleet.CollectionDriverProfiles, q, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// ForUser returns the profile belonging to a user, or nil when none exists
func (d *DriverProfilesClient) ForUser(ctx context.Context, userID string) (*fleet.DriverProfile, error) {
	var profiles []fleet.DriverProfile
	q := Query{
		Fields: []string{"*", "user_id.*", "assigned_vehicle_id.*"},
		Filter: map[string]interface{}{"user_id": map[string]string{"_eq": userID}},
		Limit:  1,
	}
	if err := d.client.ListItems(ctx, fleet.CollectionDriverProfiles, q, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

// Create creates a driver profile
func (d *DriverProfilesClient) Create(ctx context.Context, profile fleet.DriverProfile) (*fleet.DriverProfile, error) {
	var created fleet.DriverProfile
	if err := d.client.CreateItem(ctx, fleet.CollectionDriverProfiles, profile, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update applies a partial update to a driver profile
func (d *DriverProfilesClient) Update(ctx context.Context, id string, patch map[string]interface{}) (*fleet.DriverProfile, error) {
	var updated fleet.DriverProfile
	if err := d.client.UpdateItem(ctx, fleet.CollectionDriverProfiles, id, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// NotificationsClient provides access to the notifications collection
type NotificationsClient struct {
	client *Client
}

// NewNotificationsClient creates a new notifications client
func NewNotificationsClient(client *Client) *NotificationsClient {
	return &NotificationsClient{client: client}
}

// List returns notifications, newest first
func (n *NotificationsClient) List(ctx context.Context, limit int) ([]fleet.Notification, error) {
	var notifications []fleet.Notification
	q := Query{Sort: []string{"-timestamp"}, Limit: limit}
	if err := n.client.ListItems(ctx, fleet.CollectionNotifications, q, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Send creates a notification record
func (n *NotificationsClient) Send(ctx context.Context, notification fleet.Notification) (*fleet.Notification, error) {
	var created fleet.Notification
	if err := n.client.CreateItem(ctx, fleet.CollectionNotifications, notification, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// MarkRead flips a notification's delivery status to read
func (n *NotificationsClient) MarkRead(ctx context.Context, id string) error {
	patch := map[string]interface{}{"status": fleet.NotificationRead}
	return n.client.UpdateItem(ctx, fleet.CollectionNotifications, id, patch, nil)
}

// MaintenanceClient provides access to the maintenance_logs collection
type MaintenanceClient struct {
	client *Client
}

// NewMaintenanceClient creates a new maintenance log client
func NewMaintenanceClient(client *Client) *MaintenanceClient {
	return &MaintenanceClient{client: client}
}

// List returns maintenance logs, most recently reported first
func (m *MaintenanceClient) List(ctx context.Context) ([]fleet.MaintenanceLog, error) {
	var logs []fleet.MaintenanceLog
	q := Query{Sort: []string{"-reported_date"}}
	if err := m.client.ListItems(ctx, fleet.CollectionMaintenanceLogs, q, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Report creates a maintenance log
func (m *MaintenanceClient) Report(ctx context.Context, log fleet.MaintenanceLog) (*fleet.MaintenanceLog, error) {
	var created fleet.MaintenanceLog
	if err := m.client.CreateItem(ctx, fleet.CollectionMaintenanceLogs, log, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// LocationsClient posts location logs
type LocationsClient struct {
	client *Client
}

// NewLocationsClient creates a new location log client
func NewLocationsClient(client *Client) *LocationsClient {
	return &LocationsClient{client: client}
}

// Create posts a single location log
func (l *LocationsClient) Create(ctx context.Context, log fleet.LocationLog) error {
	return l.client.CreateItem(ctx, fleet.CollectionLocationLogs, log, nil)
}

// DriversClient lists the backend users that hold the driver role
type DriversClient struct {
	client *Client
}

// NewDriversClient creates a new drivers client
func NewDriversClient(client *Client) *DriversClient {
	return &DriversClient{client: client}
}

// List returns users whose role is Driver. The role may come back as a
// bare ID when the caller lacks permission to expand it; those users are
// kept so dispatchers still see the full list.
func (d *DriversClient) List(ctx context.Context) ([]user.Identity, error) {
	query := url.Values{}
	query.Set("fields", "*,role.*")

	var raw []meResponse
	if err := d.client.do(ctx, "GET", "/users", query, nil, &raw, ""); err != nil {
		return nil, err
	}

	var drivers []user.Identity
	for i := range raw {
		var roleID string
		if err := json.Unmarshal(raw[i].Role, &roleID); err == nil {
			drivers = append(drivers, *raw[i].identity())
			continue
		}
		identity := raw[i].identity()
		if identity.Role == user.RoleDriver {
			drivers = append(drivers, *identity)
		}
	}

	return drivers, nil
}
