package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"heritageblade/internal/adminpanel"
	"heritageblade/internal/bookingform"
	"heritageblade/internal/catalog"
	"heritageblade/internal/client"
	"heritageblade/internal/config"
	"heritageblade/internal/google"
	"heritageblade/internal/models"
)

const usage = `usage: heritagectl [flags] <command> [args]

commands:
  bookings list                 print every booking, newest first
  bookings export -o FILE       save the bookings workbook
  book [flags]                  create a booking
  customers list [-q QUERY]     print customers matching QUERY
  customers create [flags]      add a customer
  customers get ID              print one customer
  customers update ID [flags]   replace every field of a customer
  customers comment ID TEXT     change only the comment of a customer
  customers watch               search customers as lines are typed on stdin
  sheets-sync [flags]           overwrite the bookings sheet with all bookings
`

type app struct {
	client   *client.Client
	catalog  *catalog.Catalog
	debounce time.Duration
	stdin    io.Reader
	stdout   io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("heritagectl", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	var (
		baseURL      = fs.String("url", os.Getenv("HERITAGE_URL"), "API base URL")
		configPath   = fs.String("config", os.Getenv("CONFIG_PATH"), "optional config file for client defaults")
		servicesPath = fs.String("services", os.Getenv("SERVICES_PATH"), "optional services catalog file")
		timeout      = fs.Duration("timeout", 0, "request timeout")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	clientCfg := config.ClientConfig{
		BaseURL:        "http://localhost:8080",
		Timeout:        models.DefaultClientTimeout,
		SearchDebounce: models.DefaultSearchDebounce,
	}
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		clientCfg = cfg.Client
	}
	if *baseURL != "" {
		clientCfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		clientCfg.Timeout = *timeout
	}

	cat := catalog.Default()
	if *servicesPath != "" {
		loaded, err := catalog.Load(*servicesPath)
		if err != nil {
			return fmt.Errorf("load services: %w", err)
		}
		cat = loaded
	}

	a := &app{
		client:   client.New(clientCfg.BaseURL, clientCfg.Timeout),
		catalog:  cat,
		debounce: clientCfg.SearchDebounce,
		stdin:    stdin,
		stdout:   stdout,
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	switch rest[0] {
	case "bookings":
		return a.bookings(ctx, rest[1:])
	case "book":
		return a.book(ctx, rest[1:])
	case "customers":
		return a.customers(ctx, rest[1:])
	case "sheets-sync":
		return a.sheetsSync(ctx, rest[1:])
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func (a *app) bookings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("bookings: expected list or export")
	}

	switch args[0] {
	case "list":
		list, err := a.client.ListBookings(ctx)
		if err != nil {
			return err
		}
		return a.printJSON(list)
	case "export":
		fs := flag.NewFlagSet("bookings export", flag.ContinueOnError)
		fs.SetOutput(a.stdout)
		out := fs.String("o", "bookings_"+time.Now().Format("20060102")+".xlsx", "output file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		data, err := a.client.ExportBookings(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *out, err)
		}
		fmt.Fprintf(a.stdout, "saved %s (%d bytes)\n", *out, len(data))
		return nil
	default:
		return fmt.Errorf("bookings: unknown subcommand %q", args[0])
	}
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	fs.SetOutput(a.stdout)
	var fields bookingform.Fields
	fs.StringVar(&fields.Name, "name", "", "customer name")
	fs.StringVar(&fields.Phone, "phone", "", "phone number")
	fs.StringVar(&fields.Email, "email", "", "email address")
	fs.StringVar(&fields.Service, "service", "", "service name or prefix")
	fs.StringVar(&fields.Date, "date", "", "date, YYYY-MM-DD")
	fs.StringVar(&fields.Time, "time", "", "time, HH:MM")
	fs.StringVar(&fields.Notes, "notes", "", "notes for the barber")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := bookingform.New(a.client, a.catalog)
	form.Open(fields.Service)
	fields.Service = a.catalog.Resolve(fields.Service)
	form.Set(fields)

	if err := form.Submit(ctx); err != nil {
		if errors.Is(err, bookingform.ErrInvalidFields) {
			return fmt.Errorf("missing %s", strings.Join(form.Invalid(), ", "))
		}
		return fmt.Errorf("%s: %w", form.Error(), err)
	}

	summary := form.Summary()
	fmt.Fprintf(a.stdout, "%s %s booked for %s at %s (id %s)\n",
		summary.Greeting(), summary.ServiceLabel(), summary.Date, summary.Time, summary.ID)
	return nil
}

func (a *app) customers(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("customers: expected list, create, get, update, comment or watch")
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("customers list", flag.ContinueOnError)
		fs.SetOutput(a.stdout)
		q := fs.String("q", "", "search query")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		list, err := a.client.ListCustomers(ctx, *q)
		if err != nil {
			return err
		}
		return a.printJSON(list)

	case "create":
		in, err := customerFlags("customers create", args[1:], a.stdout)
		if err != nil {
			return err
		}
		panel := adminpanel.New(a.client, a.debounce)
		defer panel.Close()
		id, err := panel.Create(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, id)
		return nil

	case "get":
		if len(args) < 2 {
			return errors.New("customers get: missing id")
		}
		c, err := a.client.GetCustomer(ctx, args[1])
		if err != nil {
			return err
		}
		return a.printJSON(c)

	case "update":
		if len(args) < 2 {
			return errors.New("customers update: missing id")
		}
		in, err := customerFlags("customers update", args[2:], a.stdout)
		if err != nil {
			return err
		}
		return a.client.UpdateCustomer(ctx, args[1], in)

	case "comment":
		if len(args) < 3 {
			return errors.New("customers comment: expected id and text")
		}
		return a.comment(ctx, args[1], strings.Join(args[2:], " "))

	case "watch":
		return a.watch(ctx)

	default:
		return fmt.Errorf("customers: unknown subcommand %q", args[0])
	}
}

// comment keeps the other fields of the customer, since an update replaces
// every field.
func (a *app) comment(ctx context.Context, id, text string) error {
	c, err := a.client.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	in := c.Input()
	in.Comment = text
	return a.client.UpdateCustomer(ctx, id, in)
}

// watch reloads the customer list after typing pauses, printing each result.
func (a *app) watch(ctx context.Context) error {
	panel := adminpanel.New(a.client, a.debounce)
	defer panel.Close()

	panel.OnChange(func() {
		if notice := panel.Notice(); notice != "" {
			fmt.Fprintln(a.stdout, notice)
			return
		}
		customers := panel.Customers()
		fmt.Fprintf(a.stdout, "%d customers for %q\n", len(customers), panel.Query())
		for _, c := range customers {
			fmt.Fprintf(a.stdout, "  %s\t%s\t%s\t%s\n", c.ID, c.Name, c.Phone, c.Email)
		}
	})
	if err := panel.Start(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(a.stdin)
	typed := false
	for scanner.Scan() {
		typed = true
		panel.SetQuery(ctx, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !typed {
		return nil
	}
	// flush the pending search once input ends
	return panel.LoadQuery(ctx, panel.Query())
}

func (a *app) sheetsSync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sheets-sync", flag.ContinueOnError)
	fs.SetOutput(a.stdout)
	var (
		credentials   = fs.String("credentials", os.Getenv("GOOGLE_CREDENTIALS_FILE"), "service account JSON file")
		spreadsheetID = fs.String("spreadsheet", os.Getenv("BOOKINGS_SPREADSHEET_ID"), "bookings spreadsheet id")
		sheetRange    = fs.String("range", "Bookings!A:J", "bookings range")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *credentials == "" || *spreadsheetID == "" {
		return errors.New("sheets-sync: -credentials and -spreadsheet are required")
	}

	bookings, err := a.client.ListBookings(ctx)
	if err != nil {
		return err
	}

	sheets, err := google.NewSheetsService(ctx, *credentials, *spreadsheetID, *sheetRange)
	if err != nil {
		return err
	}
	if err := sheets.ReplaceBookings(ctx, bookings); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "synced %d bookings\n", len(bookings))
	return nil
}

func customerFlags(name string, args []string, out io.Writer) (models.CustomerInput, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	var in models.CustomerInput
	fs.StringVar(&in.Name, "name", "", "customer name")
	fs.StringVar(&in.Phone, "phone", "", "phone number")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.Comment, "comment", "", "free-form comment")
	if err := fs.Parse(args); err != nil {
		return models.CustomerInput{}, err
	}
	return in, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
