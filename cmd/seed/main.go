// Command seed provisions admin accounts and, optionally, a demo catalog.
// It is the only way to create an admin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/logger"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/service"
)

func main() {
	name := flag.String("name", "Admin User", "admin display name")
	email := flag.String("email", "admin@example.com", "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (defaults to $ADMIN_PASSWORD)")
	demo := flag.Bool("demo", false, "also create a demo catalog when no movies exist")
	date := flag.String("date", time.Now().AddDate(0, 0, 7).Format(time.DateOnly), "date of demo showtimes")
	flag.Parse()

	cfg, err := config.LoadTool()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *password == "" {
		log.Fatal("an admin password is required (-password or ADMIN_PASSWORD)")
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s := seeder{
		users:   repository.NewUserRepo(db),
		movies:  repository.NewMovieRepo(db),
		catalog: service.NewCatalogService(repository.NewMovieRepo(db), repository.NewShowtimeRepo(db)),
		cost:    cfg.BcryptCost,
		log:     log,
	}
	if err := s.admin(ctx, *name, *email, *password); err != nil {
		log.Fatal("seed admin", zap.Error(err))
	}
	if *demo {
		if err := s.demoCatalog(ctx, *date); err != nil {
			log.Fatal("seed demo catalog", zap.Error(err))
		}
	}
}

type seeder struct {
	users   *repository.UserRepo
	movies  *repository.MovieRepo
	catalog *service.CatalogService
	cost    int
	log     *zap.Logger
}

// admin creates the admin account unless the email is already taken.
func (s seeder) admin(ctx context.Context, name, email, password string) error {
	u, err := s.users.Create(ctx, name, email, password, model.RoleAdmin, s.cost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		existing, gerr := s.users.GetByEmail(ctx, email)
		if gerr != nil {
			return gerr
		}
		if existing.Role != model.RoleAdmin {
			return fmt.Errorf("%s already belongs to a non-admin account", email)
		}
		s.log.Info("admin already exists", zap.String("email", existing.Email))
		return nil
	case err != nil:
		return err
	}
	s.log.Info("admin created", zap.Uint64("id", u.ID), zap.String("email", u.Email))
	return nil
}

var demoTimes = []string{"10:00 AM", "02:00 PM", "06:00 PM", "09:00 PM"}

var demoMovies = []service.MovieInput{
	{Title: "Inception", Description: "A thief who steals corporate secrets through dream-sharing technology is given the inverse task of planting an idea.", Duration: 148, Genre: "Sci-Fi"},
	{Title: "The Dark Knight", Description: "Batman faces the Joker, a criminal mastermind who wants to plunge Gotham into anarchy.", Duration: 152, Genre: "Action"},
	{Title: "Parasite", Description: "A poor family schemes to become employed by a wealthy family.", Duration: 132, Genre: "Thriller"},
	{Title: "Spirited Away", Description: "A girl wanders into a world ruled by gods, witches and spirits.", Duration: 125, Genre: "Animation"},
	{Title: "The Grand Budapest Hotel", Description: "A concierge and his lobby boy are framed for murder.", Duration: 99, Genre: "Comedy"},
	{Title: "Get Out", Description: "A young man uncovers a disturbing secret when he meets his girlfriend's family.", Duration: 104, Genre: "Horror"},
}

// demoCatalog inserts demoMovies with four showtimes each on date.  It does
// nothing when the catalog already has movies.
func (s seeder) demoCatalog(ctx context.Context, date string) error {
	existing, err := s.movies.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.log.Info("catalog not empty, skipping demo data", zap.Int("movies", len(existing)))
		return nil
	}
	showtimes := 0
	for i, in := range demoMovies {
		in.PosterURL = fmt.Sprintf("https://picsum.photos/seed/movie-%d/500/750", i+1)
		m, err := s.catalog.CreateMovie(ctx, in)
		if err != nil {
			return fmt.Errorf("movie %q: %w", in.Title, err)
		}
		for j, t := range demoTimes {
			price := float64(250 + (i*37+j*23)%150)
			if _, err := s.catalog.CreateShowtime(ctx, service.ShowtimeInput{MovieID: m.ID, Date: date, Time: t, Price: price}); err != nil {
				return fmt.Errorf("showtime for %q: %w", in.Title, err)
			}
			showtimes++
		}
	}
	s.log.Info("demo catalog created", zap.Int("movies", len(demoMovies)), zap.Int("showtimes", showtimes))
	return nil
}
