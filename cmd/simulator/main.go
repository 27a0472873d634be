package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Stage is one step a job walks through in the workshop.
type Stage struct {
	Status   string
	Progress int
	Notes    []string
}

// stages in workshop order; progress never goes backwards.
var stages = []Stage{
	{Status: "Pending", Progress: 0, Notes: []string{"Vehicle checked in", "Waiting for a free bay"}},
	{Status: "In Progress", Progress: 20, Notes: []string{"Initial inspection started", "Diagnostics running"}},
	{Status: "Parts Ordered", Progress: 35, Notes: []string{"Brake pads ordered", "Waiting on supplier"}},
	{Status: "Under Repair", Progress: 60, Notes: []string{"Replacing worn parts", "Fitting new components"}},
	{Status: "Quality Check", Progress: 85, Notes: []string{"Road test", "Final inspection"}},
	{Status: "Ready for Pickup", Progress: 95, Notes: []string{"Vehicle washed and parked out front"}},
	{Status: "Completed", Progress: 100, Notes: []string{"Handed over to customer"}},
}

var makes = []struct{ Make, Model string }{
	{"Toyota", "Corolla"},
	{"Honda", "Civic"},
	{"Ford", "Focus"},
	{"Volkswagen", "Golf"},
	{"Nissan", "Leaf"},
}

// Job is one simulated service thread.
type Job struct {
	ServiceID  string
	VehicleID  string
	CustomerID string
	ProgressID string
	Stage      int
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the service center API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func newClient(baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// do sends a JSON request and decodes the data part of the response
// envelope into out.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		e := &apiError{Status: resp.StatusCode}
		if env.Error != nil {
			e.Code, e.Message = env.Error.Code, env.Error.Message
		}
		return e
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type idOnly struct {
	ID string `json:"id"`
}

// registerCustomer signs up a demo customer and returns its id and token.
func (c *Client) registerCustomer(ctx context.Context, n int) (string, string, error) {
	var resp struct {
		Token string `json:"token"`
		User  idOnly `json:"user"`
	}
	body := map[string]string{
		"name":     fmt.Sprintf("Sim Customer %d", n),
		"email":    fmt.Sprintf("sim-%d-%d@example.com", time.Now().Unix(), n),
		"password": "simulator-pass",
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", body, &resp); err != nil {
		return "", "", fmt.Errorf("register customer: %w", err)
	}
	return resp.User.ID, resp.Token, nil
}

func plate(n int) string {
	return fmt.Sprintf("SIM%04d%02d", time.Now().Unix()%10000, n)
}

func (c *Client) createVehicle(ctx context.Context, customerToken string, n int) (string, error) {
	car := makes[rand.Intn(len(makes))]
	body := map[string]interface{}{
		"registrationNumber": plate(n),
		"make":               car.Make,
		"model":              car.Model,
		"year":               2015 + rand.Intn(10),
		"mileage":            rand.Intn(150000),
	}
	var v idOnly
	if err := c.do(ctx, http.MethodPost, "/vehicles", customerToken, body, &v); err != nil {
		return "", fmt.Errorf("create vehicle: %w", err)
	}
	return v.ID, nil
}

func (c *Client) createService(ctx context.Context, vehicleID string) (string, error) {
	body := map[string]interface{}{
		"name":           "Full service",
		"vehicleId":      vehicleID,
		"estimatedHours": 2 + rand.Intn(6),
	}
	var s idOnly
	if err := c.do(ctx, http.MethodPost, "/services", c.Token, body, &s); err != nil {
		return "", fmt.Errorf("create service: %w", err)
	}
	return s.ID, nil
}

// setupJob creates a customer, a vehicle and a service to report on.
func (c *Client) setupJob(ctx context.Context, n int) (*Job, error) {
	customerID, customerToken, err := c.registerCustomer(ctx, n)
	if err != nil {
		return nil, err
	}
	vehicleID, err := c.createVehicle(ctx, customerToken, n)
	if err != nil {
		return nil, err
	}
	serviceID, err := c.createService(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return &Job{ServiceID: serviceID, VehicleID: vehicleID, CustomerID: customerID}, nil
}

// advance reports the job's current stage and moves it on. It returns false
// once the job is completed.
func (c *Client) advance(ctx context.Context, job *Job) (bool, error) {
	if job.Stage >= len(stages) {
		return false, nil
	}
	stage := stages[job.Stage]
	notes := stage.Notes[rand.Intn(len(stage.Notes))]
	body := map[string]interface{}{
		"status":   stage.Status,
		"progress": stage.Progress,
		"notes":    notes,
	}

	var logDoc idOnly
	if job.ProgressID == "" {
		body["serviceId"] = job.ServiceID
		body["vehicleId"] = job.VehicleID
		body["customerId"] = job.CustomerID
		if err := c.do(ctx, http.MethodPost, "/progress", c.Token, body, &logDoc); err != nil {
			return true, fmt.Errorf("create progress: %w", err)
		}
		job.ProgressID = logDoc.ID
	} else {
		if err := c.do(ctx, http.MethodPut, "/progress/"+job.ProgressID, c.Token, body, &logDoc); err != nil {
			return true, fmt.Errorf("update progress: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"service_id": job.ServiceID,
		"status":     stage.Status,
		"progress":   stage.Progress,
	}).Info("Reported progress")

	job.Stage++
	return job.Stage < len(stages), nil
}

func simulateJob(ctx context.Context, c *Client, job *Job, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		more, err := c.advance(ctx, job)
		if err != nil {
			log.WithError(err).WithField("service_id", job.ServiceID).Error("Progress report failed")
		}
		if !more {
			log.WithField("service_id", job.ServiceID).Info("Job completed")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func envInt(name string, def, min int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= min {
			return n
		}
	}
	return def
}

func main() {
	token := os.Getenv("SIM_AUTH_TOKEN")
	if token == "" {
		log.Fatal("SIM_AUTH_TOKEN must hold a staff token")
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	jobCount := envInt("SIM_JOBS", 3, 1)
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 3, 1)) * time.Second

	log.WithFields(log.Fields{
		"jobs":     jobCount,
		"api_url":  apiURL,
		"interval": interval,
	}).Info("Starting workshop simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newClient(apiURL, token)
	var jobs []*Job
	for i := 0; i < jobCount; i++ {
		job, err := client.setupJob(ctx, i+1)
		if err != nil {
			log.WithError(err).Error("Failed to set up job")
			continue
		}
		jobs = append(jobs, job)
	}

	if len(jobs) == 0 {
		log.Error("No jobs created. Ensure SIM_AUTH_TOKEN is valid and API is reachable. Exiting.")
		return
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			simulateJob(ctx, client, j, interval)
		}(job)
	}
	wg.Wait()
	log.Info("Workshop simulation finished")
}
