package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/davelindo/galleryofbabel/internal/httpapi"
)

var (
	statusAddr string
	statusJSON bool
)

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "127.0.0.1:9090", "status server address")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw JSON snapshot")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running instance's status endpoint",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + statusAddr + "/status")
	if err != nil {
		return fmt.Errorf("status server unreachable at %s: %w", statusAddr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status server returned HTTP %d", resp.StatusCode)
	}

	var snap httpapi.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("decoding status response: %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("cpu_scored:   %d\n", snap.Counters.CPUScored)
	fmt.Printf("gpu_scored:   %d\n", snap.Counters.GPUScored)
	fmt.Printf("candidates:   %d\n", snap.Counters.Candidates)
	fmt.Printf("samples:      %d\n", snap.Counters.Samples)
	fmt.Printf("verified:     %d\n", snap.Counters.Verified)
	fmt.Printf("submitted:    %d\n", snap.Counters.Submitted)
	fmt.Printf("accepted:     %d\n", snap.Counters.Accepted)
	fmt.Printf("rejected:     %d\n", snap.Counters.Rejected)
	if snap.HasBest {
		fmt.Printf("best_score:   %.6f\n", snap.BestScore)
	} else {
		fmt.Println("best_score:   (none yet)")
	}
	fmt.Printf("margin:       %.4f %s\n", snap.MarginCurrent, snap.MarginTrend)
	fmt.Printf("shift:        %.4f %s\n", snap.ShiftCurrent, snap.ShiftTrend)
	fmt.Printf("queue_depth:  %d\n", snap.SubmissionQueue)
	return nil
}
