package main

import (
	"fmt"
	"time"

	"github.com/JHMR18/truck-drive/internal/api"
	"github.com/JHMR18/truck-drive/internal/fleet"
	"github.com/spf13/cobra"
)

func vehiclesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "Manage the vehicle fleet",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all vehicles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			vehicles, err := api.NewVehiclesClient(a.authed).List(cmd.Context())
			if err != nil {
				return err
			}
			return a.output(vehicles, func() {
				for _, v := range vehicles {
					fmt.Printf("%-14s %-18s %-12s %s\n", v.PlateNumber, v.Type, v.Status, v.ID)
				}
			})
		},
	})

	var plate, vtype, status string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a new vehicle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if plate == "" {
				return fmt.Errorf("--plate is required")
			}
			created, err := api.NewVehiclesClient(a.authed).Create(cmd.Context(), fleet.Vehicle{
				PlateNumber: plate,
				Type:        vtype,
				Status:      status,
			})
			if err != nil {
				return err
			}
			return a.output(created, func() {
				fmt.Printf("Created vehicle %s (%s)\n", created.PlateNumber, created.ID)
			})
		},
	}
	create.Flags().StringVar(&plate, "plate", "", "Plate number")
	create.Flags().StringVar(&vtype, "type", fleet.VehicleTypeOther, "Vehicle type")
	create.Flags().StringVar(&status, "status", fleet.VehicleIdle, "Initial status")
	cmd.AddCommand(create)

	var newStatus, driverID string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a vehicle's status or assigned driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			patch := map[string]interface{}{}
			if newStatus != "" {
				patch["status"] = newStatus
			}
			if driverID != "" {
				patch["assigned_driver_id"] = driverID
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to update, set --status or --driver")
			}
			updated, err := api.NewVehiclesClient(a.authed).Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return a.output(updated, func() {
				fmt.Printf("Updated vehicle %s: status=%s\n", updated.ID, updated.Status)
			})
		},
	}
	update.Flags().StringVar(&newStatus, "status", "", "New status")
	update.Flags().StringVar(&driverID, "driver", "", "Assigned driver profile ID")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if err := api.NewVehiclesClient(a.authed).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted vehicle %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func missionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "Manage dispatch missions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List missions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			missions, err := api.NewMissionsClient(a.authed).List(cmd.Context())
			if err != nil {
				return err
			}
			return a.output(missions, func() {
				for _, m := range missions {
					fmt.Printf("%-30s %-12s %-20s %s\n", m.Title, m.Status, m.StartTime, m.ID)
				}
			})
		},
	})

	var title, description, vehicleID, driverID string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			mission := fleet.Mission{
				Title:             title,
				Description:       description,
				Status:            fleet.MissionPlanned,
				StartTime:         time.Now().UTC().Format(time.RFC3339),
				AssignedVehicleID: fleet.RelationID(vehicleID),
				AssignedDriverID:  fleet.RelationID(driverID),
			}
			if identity := a.session.Identity(); identity != nil {
				mission.CreatedBy = identity.ID
			}
			created, err := api.NewMissionsClient(a.authed).Create(cmd.Context(), mission)
			if err != nil {
				return err
			}
			return a.output(created, func() {
				fmt.Printf("Created mission %q (%s)\n", created.Title, created.ID)
			})
		},
	}
	create.Flags().StringVar(&title, "title", "", "Mission title")
	create.Flags().StringVar(&description, "description", "", "Mission description")
	create.Flags().StringVar(&vehicleID, "vehicle", "", "Assigned vehicle ID")
	create.Flags().StringVar(&driverID, "driver", "", "Assigned driver profile ID")
	cmd.AddCommand(create)

	var newStatus string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a mission's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if newStatus == "" {
				return fmt.Errorf("--status is required")
			}
			patch := map[string]interface{}{"status": newStatus}
			if newStatus == fleet.MissionCompleted {
				patch["end_time"] = time.Now().UTC().Format(time.RFC3339)
			}
			updated, err := api.NewMissionsClient(a.authed).Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return a.output(updated, func() {
				fmt.Printf("Updated mission %s: status=%s\n", updated.ID, updated.Status)
			})
		},
	}
	update.Flags().StringVar(&newStatus, "status", "", "New status")
	cmd.AddCommand(update)

	return cmd
}

func driversCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List drivers and their profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users holding the driver role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			drivers, err := api.NewDriversClient(a.authed).List(cmd.Context())
			if err != nil {
				return err
			}
			return a.output(drivers, func() {
				for _, d := range drivers {
					fmt.Printf("%-24s %-28s %s\n", d.DisplayName(), d.Email, d.ID)
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "profiles",
		Short: "List driver operational profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			profiles, err := api.NewDriverProfilesClient(a.authed).List(cmd.Context())
			if err != nil {
				return err
			}
			return a.output(profiles, func() {
				for _, p := range profiles {
					fmt.Printf("%-20s %-14s %s\n", p.LicenseNumber, p.AvailabilityStatus, p.ID)
				}
			})
		},
	})

	return cmd
}

func notificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Read and send notifications",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			notifications, err := api.NewNotificationsClient(a.authed).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.output(notifications, func() {
				for _, n := range notifications {
					fmt.Printf("%-20s %-12s %-10s %s\n", n.Timestamp, n.Type, n.Status, n.Message)
				}
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 25, "Maximum notifications to fetch")
	cmd.AddCommand(list)

	var recipient, ntype, message string
	send := &cobra.Command{
		Use:   "send",
		Short: "Send a notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if message == "" {
				return fmt.Errorf("--message is required")
			}
			notification := fleet.Notification{
				RecipientID: recipient,
				Type:        ntype,
				Message:     message,
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			}
			if identity := a.session.Identity(); identity != nil {
				notification.SenderID = identity.ID
			}
			created, err := api.NewNotificationsClient(a.authed).Send(cmd.Context(), notification)
			if err != nil {
				return err
			}
			return a.output(created, func() {
				fmt.Printf("Sent notification %s\n", created.ID)
			})
		},
	}
	send.Flags().StringVar(&recipient, "to", "", "Recipient user ID (empty broadcasts)")
	send.Flags().StringVar(&ntype, "type", fleet.NotificationInstruction, "Notification type")
	send.Flags().StringVar(&message, "message", "", "Message body")
	cmd.AddCommand(send)

	cmd.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if err := api.NewNotificationsClient(a.authed).MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Marked %s as read\n", args[0])
			return nil
		},
	})

	return cmd
}

func maintenanceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Track vehicle maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List maintenance logs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			logs, err := api.NewMaintenanceClient(a.authed).List(cmd.Context())
			if err != nil {
				return err
			}
			return a.output(logs, func() {
				for _, l := range logs {
					fmt.Printf("%-20s %-36s %s\n", l.ReportedDate, l.VehicleID, l.IssueReported)
				}
			})
		},
	})

	var vehicleID, issue string
	report := &cobra.Command{
		Use:   "report",
		Short: "Report a vehicle issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if vehicleID == "" || issue == "" {
				return fmt.Errorf("--vehicle and --issue are required")
			}
			log := fleet.MaintenanceLog{
				VehicleID:     vehicleID,
				IssueReported: issue,
				ReportedDate:  time.Now().UTC().Format(time.RFC3339),
			}
			if identity := a.session.Identity(); identity != nil {
				log.ReportedBy = identity.ID
			}
			created, err := api.NewMaintenanceClient(a.authed).Report(cmd.Context(), log)
			if err != nil {
				return err
			}
			return a.output(created, func() {
				fmt.Printf("Reported issue %s for vehicle %s\n", created.ID, created.VehicleID)
			})
		},
	}
	report.Flags().StringVar(&vehicleID, "vehicle", "", "Vehicle ID")
	report.Flags().StringVar(&issue, "issue", "", "Issue description")
	cmd.AddCommand(report)

	return cmd
}
