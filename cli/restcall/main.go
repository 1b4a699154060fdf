package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/KarpelesLab/restclient"
	"github.com/KarpelesLab/typutil"
	"github.com/KarpelesLab/webutil"
	"github.com/spf13/viper"
)

// call a REST endpoint and print the response

var (
	method       = flag.String("method", "GET", "request method")
	target       = flag.String("url", "", "endpoint to call")
	query        = flag.String("query", "", "query parameters, url encoded or json")
	data         = flag.String("data", "", "request body")
	kind         = flag.String("kind", "json", "body kind: json, xml, text, html or form")
	tokenURL     = flag.String("token-url", "", "OAuth2 token endpoint")
	clientID     = flag.String("client-id", "", "OAuth2 client id")
	clientSecret = flag.String("client-secret", "", "OAuth2 client secret")
	username     = flag.String("username", "", "OAuth2 username (password grant)")
	password     = flag.String("password", "", "OAuth2 password (password grant)")
	file         = flag.String("file", "", "file to send as multipart/form-data")
	field        = flag.String("field", "file", "form field name of -file")
	configFile   = flag.String("config", "", "client configuration file")
	trace        = flag.Bool("trace", false, "print multipart bodies before sending")
)

func main() {
	flag.Parse()
	if *target == "" {
		log.Printf("parameter -url is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("failed to load configuration: %s", err)
		os.Exit(1)
	}
	if *trace {
		cfg.TraceMultipart = true
	}
	ctx := restclient.NewClient(cfg).Use(context.Background())

	var opts []restclient.RequestOption
	if *query != "" {
		q, err := parseParams(*query)
		if err != nil {
			log.Printf("invalid -query: %s", err)
			os.Exit(1)
		}
		opts = append(opts, restclient.WithQuery(q))
	}

	if *tokenURL != "" {
		tok, err := login(ctx)
		if err != nil {
			log.Printf("failed to obtain token: %s", err)
			os.Exit(1)
		}
		opts = append(opts, restclient.WithToken(tok))
	}

	var req *restclient.Request
	if *file != "" {
		req, err = formDataRequest(ctx, opts)
	} else {
		if *data != "" {
			k, err := parseKind(*kind)
			if err != nil {
				log.Printf("%s", err)
				os.Exit(1)
			}
			ct, _ := restclient.ContentTypeFor(k)
			opts = append(opts, restclient.WithPayload([]byte(*data), ct))
		}
		req, err = restclient.BuildRequest(*method, *target, opts...)
	}
	if err != nil {
		log.Printf("failed to build request: %s", err)
		os.Exit(1)
	}

	res := restclient.Execute[string](ctx, req)
	fmt.Printf("%d %s\n", res.ResponseStatus, res.StatusDescription)
	if len(res.Body) > 0 {
		fmt.Printf("%s\n", res.Body)
	}
	if res.Exception != nil {
		log.Printf("request failed (%s): %s", res.ExceptionStatus, res.Exception)
		os.Exit(1)
	}
}

func loadConfig() (restclient.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESTCALL")
	v.AutomaticEnv()
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return restclient.Config{}, err
		}
	}
	return restclient.LoadConfig(v)
}

func login(ctx context.Context) (*restclient.Token, error) {
	var res *restclient.Result[*restclient.Token]
	if *username != "" {
		res = restclient.PasswordLogin(ctx, *tokenURL, *username, *password)
	} else {
		res = restclient.ClientLogin(ctx, *tokenURL, *clientID, *clientSecret)
	}
	tok, err := res.Unwrap()
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access_token")
	}
	return tok, nil
}

func formDataRequest(ctx context.Context, opts []restclient.RequestOption) (*restclient.Request, error) {
	up, err := restclient.NewFileUpload(*file, "", *field)
	if err != nil {
		return nil, err
	}
	var fields url.Values
	if *data != "" {
		fields, err = parseParams(*data)
		if err != nil {
			return nil, err
		}
	}
	return restclient.FormDataRequest(ctx, *target, fields, []*restclient.FileUpload{up}, opts...)
}

func parseParams(param string) (url.Values, error) {
	var p map[string]any
	if param[0] == '{' {
		// json
		if err := json.Unmarshal([]byte(param), &p); err != nil {
			return nil, err
		}
	} else {
		// url encoded
		p = webutil.ParsePhpQuery(param)
	}

	res := make(url.Values, len(p))
	for k, v := range p {
		s, err := typutil.As[string](v)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		res.Set(k, s)
	}
	return res, nil
}

func parseKind(s string) (restclient.ContentKind, error) {
	switch s {
	case "json":
		return restclient.KindJSON, nil
	case "xml":
		return restclient.KindXML, nil
	case "text":
		return restclient.KindText, nil
	case "html":
		return restclient.KindHTML, nil
	case "form":
		return restclient.KindForm, nil
	}
	return 0, fmt.Errorf("unknown body kind %q", s)
}
