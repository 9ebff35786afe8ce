// Command farmctl is a CLI client for the farm monitoring API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"farmwatch/internal/farmapi"
	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
	"farmwatch/internal/reconcile"
	"farmwatch/internal/session"
	"farmwatch/internal/transport"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `farmctl
Usage:
  farmctl [-endpoint URL] [-v] <cmd> [args]

Commands:
  version
  login        -u <email> -p <password>            (saves tokens)
  logout
  whoami
  farms
  farm-add     -name N -location L -capacity C [-owner ID]
  coops        [-farm ID]
  coop-add     -farm ID -name N -capacity C
  alerts       [-all] [-severity low|medium|high]
  resolve      -id ID
  resolve-all
  alert-rm     -id ID
  alerts-clear
  devices
  readings     [-coop ID]
  users
  farmers
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

// wiring holds everything a subcommand can need.
type wiring struct {
	client *transport.Client
	store  *session.Store
	alerts *farmapi.AlertAPI
	farms  *farmapi.FarmAPI
	sensor *farmapi.SensorAPI
	device *farmapi.DeviceAPI
	users  *farmapi.UserAPI
}

func setup(endpoint string, verbose bool) *wiring {
	logger := zap.NewNop()
	if verbose {
		logger, _ = zap.NewDevelopment()
	}
	tokens := session.NewFileStore(session.DefaultDir())
	client := transport.NewClient(endpoint, 0, tokens, logger)
	store := session.NewStore(client, tokens, logger)
	client.SetUnauthorizedHook(store.ForceClear)
	return &wiring{
		client: client,
		store:  store,
		alerts: farmapi.NewAlertAPI(client),
		farms:  farmapi.NewFarmAPI(client),
		sensor: farmapi.NewSensorAPI(client),
		device: farmapi.NewDeviceAPI(client),
		users:  farmapi.NewUserAPI(client),
	}
}

func table(write func(w *tabwriter.Writer)) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	write(w)
	_ = w.Flush()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func main() {
	endpoint := flag.String("endpoint", envOr("FARMWATCH_ENDPOINT", "http://localhost:8000"), "API base URL")
	verbose := flag.Bool("v", false, "verbose request logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w := setup(*endpoint, *verbose)

	switch cmd {

	case "version":
		fmt.Printf("farmctl %s (%s)\n", version, buildDate)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		if err := w.store.Login(ctx, session.Credentials{Email: *u, Password: *p}); err != nil {
			fail(err)
		}
		sess := w.store.Current()
		fmt.Printf("logged in as %s (%s)\n", sess.DisplayName, sess.Role)

	case "logout":
		w.store.Logout(ctx)
		fmt.Println("logged out")

	case "whoami":
		if err := w.store.Restore(ctx); err != nil {
			fail(err)
		}
		sess := w.store.Current()
		if sess == nil {
			fmt.Println("not logged in")
			os.Exit(1)
		}
		fmt.Printf("%s <%s> role=%s\n", sess.DisplayName, sess.Email, sess.Role)
		if !sess.Tokens.ExpiresAt.IsZero() {
			fmt.Printf("token expires %s\n", fmtTime(sess.Tokens.ExpiresAt))
		}

	case "farms":
		farms, err := w.farms.Farms(ctx)
		if err != nil {
			fail(err)
		}
		table(func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tCAPACITY\tCOOPS\tACTIVE\tOWNER")
			for _, f := range farms {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%v\t%s\n",
					f.ID, f.Name, f.Location, f.TotalCapacity, f.CoopsCount, f.IsActive, f.OwnerName)
			}
		})
		stats := normalize.FarmStats(farms)
		fmt.Printf("%d farms (%d active), capacity %d\n", stats.Farms, stats.ActiveFarms, stats.Capacity)

	case "farm-add":
		fs := flag.NewFlagSet("farm-add", flag.ExitOnError)
		name := fs.String("name", "", "farm name")
		location := fs.String("location", "", "location")
		capacity := fs.Int64("capacity", 0, "total capacity")
		owner := fs.Int64("owner", 0, "owner user id (admin only)")
		_ = fs.Parse(flag.Args()[1:])

		if err := w.store.Restore(ctx); err != nil {
			fail(err)
		}
		sess := w.store.Current()
		if sess == nil {
			fail(fmt.Errorf("login first"))
		}
		rec := reconcile.New(w.alerts, w.farms, reconcile.NewAlertList(reconcile.FilterActive), nil)
		farms, err := rec.CreateFarm(ctx, model.FarmDraft{
			Name:          *name,
			Location:      *location,
			TotalCapacity: *capacity,
			OwnerID:       *owner,
		}, sess.Role)
		if err != nil {
			fail(err)
		}
		fmt.Printf("created; %d farms total\n", len(farms))

	case "coops":
		fs := flag.NewFlagSet("coops", flag.ExitOnError)
		farmID := fs.Int64("farm", 0, "filter by farm id")
		_ = fs.Parse(flag.Args()[1:])
		coops, err := w.farms.Coops(ctx)
		if err != nil {
			fail(err)
		}
		if *farmID != 0 {
			coops = normalize.CoopsForFarm(coops, *farmID)
		}
		table(func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tFARM\tNAME\tCAPACITY\tCHICKENS")
			for _, c := range coops {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\n", c.ID, c.FarmID, c.Name, c.Capacity, c.Chickens)
			}
		})

	case "coop-add":
		fs := flag.NewFlagSet("coop-add", flag.ExitOnError)
		farmID := fs.Int64("farm", 0, "farm id")
		name := fs.String("name", "", "coop name")
		capacity := fs.Int64("capacity", 0, "capacity")
		_ = fs.Parse(flag.Args()[1:])
		rec := reconcile.New(w.alerts, w.farms, reconcile.NewAlertList(reconcile.FilterActive), nil)
		coops, err := rec.CreateCoop(ctx, model.CoopDraft{FarmID: *farmID, Name: *name, Capacity: *capacity})
		if err != nil {
			fail(err)
		}
		fmt.Printf("created; %d coops total\n", len(coops))

	case "alerts":
		fs := flag.NewFlagSet("alerts", flag.ExitOnError)
		all := fs.Bool("all", false, "include resolved alerts")
		severity := fs.String("severity", "", "filter by severity")
		_ = fs.Parse(flag.Args()[1:])

		filter := farmapi.AlertFilter{Severity: model.Severity(*severity)}
		if !*all {
			resolved := false
			filter.Resolved = &resolved
		}
		alerts, err := w.alerts.List(ctx, filter)
		if err != nil {
			fail(err)
		}
		if len(alerts) == 0 {
			fmt.Println("all systems normal")
			return
		}
		table(func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tCOOP\tTYPE\tSTATUS\tVALUE\tWHEN\tMESSAGE")
			for _, a := range alerts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s%s\t%s\t%s\n",
					a.ID, a.CoopName, a.AlertType, a.Info.StatusLabel,
					a.Info.Value, a.Info.Unit, fmtTime(a.CreatedAt), a.Message)
			}
		})

	case "resolve":
		fs := flag.NewFlagSet("resolve", flag.ExitOnError)
		id := fs.Int64("id", 0, "alert id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == 0 {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		if err := w.alerts.Resolve(ctx, *id); err != nil {
			fail(err)
		}
		fmt.Println("resolved")

	case "resolve-all":
		list := reconcile.NewAlertList(reconcile.FilterActive)
		rec := reconcile.New(w.alerts, w.farms, list, nil)
		if err := rec.Refresh(ctx); err != nil {
			fail(err)
		}
		n := len(list.Snapshot())
		if err := rec.ResolveAll(ctx); err != nil {
			fail(err)
		}
		fmt.Printf("resolved %d alerts\n", n)

	case "alert-rm":
		fs := flag.NewFlagSet("alert-rm", flag.ExitOnError)
		id := fs.Int64("id", 0, "alert id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == 0 {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		if err := w.alerts.Delete(ctx, *id); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	case "alerts-clear":
		list := reconcile.NewAlertList(reconcile.FilterAll)
		rec := reconcile.New(w.alerts, w.farms, list, nil)
		if err := rec.Refresh(ctx); err != nil {
			fail(err)
		}
		n := len(list.Snapshot())
		if err := rec.DeleteAll(ctx); err != nil {
			fail(err)
		}
		fmt.Printf("deleted %d alerts\n", n)

	case "devices":
		devices, err := w.device.List(ctx)
		if err != nil {
			fail(err)
		}
		table(func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tLAST SYNC\tFARM")
			for _, d := range devices {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Name, d.Type, d.Status, fmtTime(d.LastSync), d.FarmName)
			}
		})
		stats := normalize.DeviceStats(devices)
		fmt.Printf("%d devices: %d online, %d error, %d offline\n",
			stats.Total, stats.Online, stats.Error, stats.Offline)

	case "readings":
		fs := flag.NewFlagSet("readings", flag.ExitOnError)
		coopID := fs.Int64("coop", 0, "filter by coop id")
		_ = fs.Parse(flag.Args()[1:])
		readings, err := w.sensor.Readings(ctx)
		if err != nil {
			fail(err)
		}
		if *coopID != 0 {
			readings = normalize.ReadingsForCoop(readings, model.Coop{ID: *coopID})
		}
		table(func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "COOP\tTIME\tTEMP\tHUM\tWATER\tFEED")
			for _, r := range readings {
				name := r.CoopName
				if name == "" {
					name = fmt.Sprintf("#%d", r.CoopID)
				}
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\n",
					name, fmtTime(r.Timestamp), r.Temperature, r.Humidity, r.WaterLevel, r.FeedLevel)
			}
		})

	case "users", "farmers":
		var list []model.User
		var err error
		if cmd == "users" {
			list, err = w.users.Users(ctx)
		} else {
			list, err = w.users.Farmers(ctx)
		}
		if err != nil {
			fail(err)
		}
		table(func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
			for _, u := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.DisplayName(), u.Email, u.Role)
			}
		})

	default:
		usage()
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
