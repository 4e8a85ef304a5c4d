package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
	"github.com/google/uuid"
)

// activityFile is the JSON form of an activity accepted by addactivity and
// the seed file.
type activityFile struct {
	CMID      int64             `json:"cmid"`
	Name      string            `json:"name"`
	Config    *core.SceneConfig `json:"config"`
	AREnabled bool              `json:"ar_enabled"`
	VREnabled bool              `json:"vr_enabled"`
	Models    []core.ModelRef   `json:"models"`
}

func (f activityFile) activity() storage.Activity {
	cfg := core.DefaultSceneConfig()
	if f.Config != nil {
		cfg = *f.Config
	}
	return storage.Activity{
		CMID:      f.CMID,
		Name:      f.Name,
		Config:    cfg,
		AREnabled: f.AREnabled,
		VREnabled: f.VREnabled,
		Models:    f.Models,
	}
}

type userFile struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Token     string `json:"token"`
	CanManage bool   `json:"canmanage"`
}

type seedFile struct {
	Users      []userFile     `json:"users"`
	Activities []activityFile `json:"activities"`
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func saveUser(ctx context.Context, store storage.Store, f userFile) (storage.User, error) {
	u := storage.User{FirstName: f.FirstName, LastName: f.LastName, Token: f.Token, CanManage: f.CanManage}
	if u.Token == "" {
		u.Token = uuid.NewString()
	}
	err := store.SaveUser(ctx, &u)
	return u, err
}

// loadSeed inserts the users and activities of a seed file, skipping
// activities whose course module already exists.
func loadSeed(ctx context.Context, store storage.Store, path string) error {
	var seed seedFile
	if err := readJSON(path, &seed); err != nil {
		return err
	}
	for _, f := range seed.Users {
		u, err := saveUser(ctx, store, f)
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", f.FirstName, err)
		}
		Logger.Info("Seeded user", "id", u.ID, "name", f.FirstName+" "+f.LastName, "manager", u.CanManage, "token", u.Token)
	}
	for _, f := range seed.Activities {
		if existing, err := store.ActivityByCMID(ctx, f.CMID); err == nil {
			Logger.Info("Activity already present", "cmid", f.CMID, "gearid", existing.ID)
			continue
		}
		a := f.activity()
		if err := store.SaveActivity(ctx, &a); err != nil {
			return fmt.Errorf("seeding activity %d: %w", f.CMID, err)
		}
		Logger.Info("Seeded activity", "cmid", a.CMID, "gearid", a.ID, "name", a.Name)
	}
	return nil
}

func addUser(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: adduser <first> <last> [manager]")
	}
	dbm, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer dbm.Close()

	f := userFile{FirstName: args[0], LastName: args[1]}
	if len(args) > 2 && strings.EqualFold(args[2], "manager") {
		f.CanManage = true
	}
	u, err := saveUser(ctx, store, f)
	if err != nil {
		return err
	}
	if dbm.InMemory {
		Logger.Warn("Database is in memory; the user is lost when this command exits")
	}
	fmt.Printf("user %d token %s\n", u.ID, u.Token)
	return nil
}

func addActivity(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: addactivity <activity.json>")
	}
	var f activityFile
	if err := readJSON(args[0], &f); err != nil {
		return err
	}
	if f.CMID <= 0 {
		return fmt.Errorf("activity needs a positive cmid")
	}

	dbm, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer dbm.Close()

	a := f.activity()
	if err := store.SaveActivity(ctx, &a); err != nil {
		return err
	}
	if dbm.InMemory {
		Logger.Warn("Database is in memory; the activity is lost when this command exits")
	}
	fmt.Printf("activity cmid %d gearid %d\n", a.CMID, a.ID)
	return nil
}
