// Command seed loads outing spots into MongoDB from a YAML file or
// generates demo spots around major Japanese cities. It also creates the
// staff accounts that moderate submissions.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/kadod/mama-odekake-liff/internal/auth"
	"github.com/kadod/mama-odekake-liff/internal/config"
	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/models"
)

type Options struct {
	Logger config.Logger `group:"Logger options"`

	MongoURI string `long:"mongo-uri"  env:"MONGO_URI" description:"MongoDB connection string" required:"true"`
	MongoDB  string `long:"mongo-db"   env:"MONGO_DB"  description:"MongoDB database name" default:"mama_odekake"`
	File     string `short:"f" long:"file" description:"YAML file of spots to load"`
	Demo     int    `short:"n" long:"demo" description:"Number of demo spots to generate"`
	Seed     int64  `long:"seed"       description:"Random seed for demo spots; 0 picks one from the clock"`
	Drop     bool   `long:"drop"       description:"Delete every existing spot first"`

	Staff StaffOptions `group:"Staff account" namespace:"staff"`
}

// StaffOptions creates one password account for the moderation screens.
type StaffOptions struct {
	User     string `long:"user"     description:"Username of a staff account to create"`
	Password string `long:"password" env:"STAFF_PASSWORD" description:"Password of the staff account"`
	Name     string `long:"name"     description:"Display name; defaults to the username"`
	Role     string `long:"role"     description:"Role of the staff account" choice:"moderator" choice:"admin" default:"moderator"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Fatal("Failed to load .env")
	}

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if err := opts.Logger.Setup(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}
	if opts.File == "" && opts.Demo <= 0 && !opts.Drop && opts.Staff.User == "" {
		log.Fatal("Nothing to do: pass --file, --demo, --drop or --staff.user")
	}

	var staff *models.User
	if opts.Staff.User != "" {
		u, err := newStaffUser(opts.Staff)
		if err != nil {
			log.WithError(err).Fatal("Invalid staff account")
		}
		staff = &u
	}

	now := time.Now().UTC()
	var spots []models.Spot
	if opts.File != "" {
		loaded, err := loadSpotFile(opts.File, now)
		if err != nil {
			log.WithError(err).WithField("file", opts.File).Fatal("Failed to load spots")
		}
		spots = append(spots, loaded...)
	}
	if opts.Demo > 0 {
		seed := opts.Seed
		if seed == 0 {
			seed = now.UnixNano()
		}
		spots = append(spots, demoSpots(rand.New(rand.NewSource(seed)), opts.Demo, now)...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := db.ConnectMongo(ctx, opts.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	store := db.NewStore(client.Database(opts.MongoDB))
	if err := store.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}
	if opts.File != "" || opts.Demo > 0 || opts.Drop {
		if err := seed(ctx, store.Spots, spots, opts.Drop); err != nil {
			log.WithError(err).Fatal("Seeding failed")
		}
	}
	if staff != nil {
		if err := createStaff(ctx, store.Users, *staff); err != nil {
			log.WithError(err).WithField("username", staff.Username).Fatal("Failed to create staff account")
		}
	}
}

// seed optionally clears the collection, then inserts spots.
func seed(ctx context.Context, coll db.SpotCollection, spots []models.Spot, drop bool) error {
	if drop {
		n, err := coll.DeleteAll(ctx)
		if err != nil {
			return err
		}
		log.WithField("deleted", n).Info("Dropped existing spots")
	}
	if len(spots) == 0 {
		return nil
	}
	n, err := coll.InsertSpots(ctx, spots)
	if err != nil {
		return err
	}
	log.WithField("inserted", n).Info("Spots seeded")
	return nil
}

// newStaffUser validates the staff options and hashes the password.
func newStaffUser(o StaffOptions) (models.User, error) {
	if err := auth.CheckUsername(o.User); err != nil {
		return models.User{}, err
	}
	if err := auth.CheckPasswordPolicy(o.Password); err != nil {
		return models.User{}, err
	}
	role, err := models.ParseRole(o.Role)
	if err != nil {
		return models.User{}, err
	}
	if role == models.RoleUser {
		return models.User{}, errors.New("staff accounts must be moderators or admins")
	}
	hash, err := auth.HashPassword(o.Password)
	if err != nil {
		return models.User{}, err
	}
	name := o.Name
	if name == "" {
		name = o.User
	}
	return models.User{Username: o.User, DisplayName: name, PasswordHash: hash, Role: role}, nil
}

func createStaff(ctx context.Context, users db.UserCollection, u models.User) error {
	if _, err := users.FindUserByUsername(ctx, u.Username); err == nil {
		return fmt.Errorf("username %q is taken", u.Username)
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}
	if err := users.InsertUser(ctx, u); err != nil {
		return err
	}
	log.WithFields(log.Fields{"username": u.Username, "role": u.Role}).Info("Staff account created")
	return nil
}
