// Command healthcheck is the container probe for certd. It exits 0 when the readiness
// endpoint answers 200 and 1 otherwise.
package main

import (
    "flag"
    "fmt"
    "net/http"
    "os"
    "time"
)

func probe(url string, timeout time.Duration) error {
    c := &http.Client{Timeout: timeout}
    resp, err := c.Get(url)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return fmt.Errorf("%s: status %d", url, resp.StatusCode)
    }
    return nil
}

func main() {
    def := os.Getenv("HEALTH_URL")
    if def == "" {
        def = "http://localhost:5000/readyz"
    }
    url := flag.String("url", def, "readiness URL")
    timeout := flag.Duration("timeout", 2*time.Second, "probe timeout")
    verbose := flag.Bool("v", false, "print failures")
    flag.Parse()

    if err := probe(*url, *timeout); err != nil {
        if *verbose {
            fmt.Fprintln(os.Stderr, err)
        }
        os.Exit(1)
    }
}
