package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loykin/recbridge/pkg/client"
)

const defaultAPIURL = "http://127.0.0.1:11111/api"

type command struct {
	session *SessionManager
}

// apiClient builds a client for the daemon, attaching the stored session
// token when one exists for the target server.
func (c command) apiClient(apiURL string, timeout time.Duration) (*client.Client, string) {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	cfg := client.Config{BaseURL: apiURL, Timeout: timeout}
	if session, err := c.session.LoadSession(); err == nil && session != nil {
		if session.ServerURL == "" || session.ServerURL == apiURL {
			cfg.Token = session.Token
		}
	}
	return client.New(cfg), apiURL
}

func (c command) reachable(ctx context.Context, api *client.Client, apiURL string) error {
	if !api.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable at %s - please start daemon first with 'recbridge serve'", apiURL)
	}
	return nil
}

func roomFilter(f RoomFlags) client.RoomFilter {
	return client.RoomFilter{Vendor: f.Vendor, Instance: f.Instance}
}

func (c command) Rooms(f RoomFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	rooms, err := api.ListRooms(ctx, f.Vendor)
	if err != nil {
		return err
	}
	printJSON(rooms)
	return nil
}

func (c command) RoomGet(f RoomFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	rooms, err := api.GetRoom(ctx, f.RoomID, f.Vendor)
	if err != nil {
		return err
	}
	printJSON(rooms)
	return nil
}

func (c command) RoomCreate(f RoomFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	auto := f.AutoRecord
	req := client.CreateRoomRequest{RoomID: f.RoomID, AutoRecord: &auto}
	if err := api.CreateRoom(ctx, req, roomFilter(f)); err != nil {
		return err
	}
	fmt.Printf("Created room %d\n", f.RoomID)
	return nil
}

func (c command) RoomDelete(f RoomFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	if err := api.DeleteRoom(ctx, f.RoomID, roomFilter(f)); err != nil {
		return err
	}
	fmt.Printf("Deleted room %d\n", f.RoomID)
	return nil
}

func (c command) RoomAction(action string, f RoomFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	if err := api.RoomAction(ctx, f.RoomID, action, roomFilter(f)); err != nil {
		return err
	}
	fmt.Printf("Applied %s to room %d\n", action, f.RoomID)
	return nil
}

func (c command) RoomStats(f RoomFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	stats, err := api.RoomStats(ctx, f.RoomID, roomFilter(f))
	if err != nil {
		return err
	}
	printJSON(stats)
	return nil
}

func (c command) InstanceList(f InstanceFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	instances, err := api.ListInstances(ctx, f.Vendor)
	if err != nil {
		return err
	}
	printJSON(instances)
	return nil
}

func (c command) InstanceStatus(f InstanceFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	statuses, err := api.InstanceStatuses(ctx, client.RoomFilter{Vendor: f.Vendor, Instance: f.Name})
	if err != nil {
		return err
	}
	printJSON(statuses)
	return nil
}

func (c command) InstanceAdd(f InstanceFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	manage := f.Manage
	req := client.AddInstanceRequest{
		Name:   f.Name,
		Vendor: f.Vendor,
		URL:    f.URL,
		Manage: &manage,
		User:   f.User,
		Pass:   f.Pass,
		Key:    f.Key,
	}
	if err := api.AddInstance(ctx, req); err != nil {
		return err
	}
	fmt.Printf("Registered instance %s/%s\n", f.Vendor, f.Name)
	return nil
}

func (c command) InstanceRemove(f InstanceFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	api, apiURL := c.apiClient(f.APIUrl, f.APITimeout)
	if err := c.reachable(ctx, api, apiURL); err != nil {
		return err
	}

	if err := api.RemoveInstance(ctx, f.Vendor, f.Name); err != nil {
		return err
	}
	fmt.Printf("Unregistered instance %s/%s\n", f.Vendor, f.Name)
	return nil
}

func (c command) Login(f LoginFlags) error {
	serverURL := f.ServerURL
	if serverURL == "" {
		serverURL = defaultAPIURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	api := client.New(client.Config{BaseURL: serverURL})
	tok, err := api.Login(ctx, f.Username, f.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	session := &Session{
		Token:     tok.Value,
		TokenType: tok.Type,
		ExpiresAt: tok.ExpiresAt,
		Username:  f.Username,
		ServerURL: serverURL,
	}
	if err := c.session.SaveSession(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Printf("Logged in as %s (session expires %s)\n", f.Username, tok.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (c command) Logout() error {
	if !c.session.IsLoggedIn() {
		fmt.Println("Not logged in")
		return nil
	}
	if err := c.session.ClearSession(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
