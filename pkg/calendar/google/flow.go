package google

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// AuthFlow obtains an authorization code from the user.
// Implementations may set config.RedirectURL before building the consent URL;
// the same config is then used for the code exchange.
type AuthFlow interface {
	AuthCode(ctx context.Context, config *oauth2.Config, state string) (string, error)
}

func consentURL(config *oauth2.Config, state string) string {
	// Offline access with forced consent so a refresh token is issued
	return config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// DefaultAuthPort is the loopback port used when a flow has none configured
const DefaultAuthPort = 8080

func loopbackRedirect(port int) string {
	if port == 0 {
		port = DefaultAuthPort
	}
	return fmt.Sprintf("http://localhost:%d/", port)
}

// ConsoleFlow prints the consent URL and reads back the code. Nothing
// listens on the loopback redirect, so the user copies the address the
// browser was sent to (or only its code parameter) from the address bar.
type ConsoleFlow struct {
	Port int
	In   io.Reader
	Out  io.Writer
}

func (f *ConsoleFlow) AuthCode(ctx context.Context, config *oauth2.Config, state string) (string, error) {
	// Client secrets often still list the retired out-of-band redirect first
	config.RedirectURL = loopbackRedirect(f.Port)

	fmt.Fprintf(f.Out, "Go to the following link in your browser:\n\n    %s\n\n"+
		"After you approve access the browser is redirected to %s, which will not load.\n"+
		"Paste the full address from the address bar, or just its code parameter: ",
		consentURL(config, state), config.RedirectURL)

	line, err := bufio.NewReader(f.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read verification code: %w", err)
	}

	return parseAuthCode(line, state)
}

// parseAuthCode extracts the authorization code from a pasted redirect
// address, a pasted query string, or a bare code
func parseAuthCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty verification code")
	}

	if !strings.Contains(input, "code=") && !strings.Contains(input, "error=") {
		return input, nil
	}

	rawQuery := input
	if i := strings.Index(input, "?"); i >= 0 {
		rawQuery = input[i+1:]
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("failed to parse pasted address: %w", err)
	}

	if e := query.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if got := query.Get("state"); got != "" && got != state {
		return "", errors.New("state mismatch in pasted address")
	}

	code := query.Get("code")
	if code == "" {
		return "", errors.New("pasted address has no code parameter")
	}
	return code, nil
}

// LocalServerFlow receives the code on a loopback redirect.
// Port 0 picks a free port.
type LocalServerFlow struct {
	Port int
	Out  io.Writer
}

type callbackResult struct {
	code string
	err  error
}

func (f *LocalServerFlow) AuthCode(ctx context.Context, config *oauth2.Config, state string) (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", f.Port))
	if err != nil {
		return "", fmt.Errorf("failed to start local auth server (try --noauth-local-webserver): %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	config.RedirectURL = fmt.Sprintf("http://localhost:%d/", port)

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			var result callbackResult
			switch {
			case query.Get("error") != "":
				result.err = fmt.Errorf("authorization denied: %s", query.Get("error"))
			case query.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			case query.Get("code") == "":
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			default:
				result.code = query.Get("code")
			}

			fmt.Fprintln(w, "The authentication flow has completed. You may close this window.")
			select {
			case results <- result:
			default:
			}
		}),
	}

	go server.Serve(listener)
	defer server.Close()

	fmt.Fprintf(f.Out, "Your browser needs to visit the following link to authorize access:\n\n    %s\n\n", consentURL(config, state))

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-results:
		return result.code, result.err
	}
}
