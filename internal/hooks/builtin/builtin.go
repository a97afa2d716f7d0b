/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package builtin ships the default hook set: tenant identity projected
// from the tokens a fronting auth proxy forwards (the proxy has already
// verified them), cluster configuration resolution, and an owner-annotation
// access policy on materialised cronjobs.
package builtin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/eoepca/check-manager/internal/checks"
	"github.com/eoepca/check-manager/internal/hooks"
	"github.com/eoepca/check-manager/internal/jsonapi"
)

// Credentials is the raw token material the auth proxy forwards.
type Credentials struct {
	AuthToken    string
	IDToken      string
	RefreshToken string
}

// Register installs the builtin auth hook set.
func Register(registry *hooks.Registry) {
	registry.Register("auth_hooks", hooks.Set{
		"get_fastapi_security":  hooks.SecurityHook(securityFromHeaders),
		"on_auth":               hooks.AuthHook(onAuth),
		"on_k8s_cronjob_access": hooks.CronjobAccessHook(cronjobAccess),
		"on_k8s_cronjob_create": hooks.CronjobMutateHook(cronjobCreate),
		"get_mock_username":     hooks.MockUsernameHook(mockUsername),
	})
}

// RegisterCluster installs the cluster resolution hooks. Registered
// separately so deployments without the builtin auth still reach a cluster.
func RegisterCluster(registry *hooks.Registry) {
	registry.Register("cluster_defaults", hooks.Set{
		"get_k8s_config":    hooks.K8sConfigHook(k8sConfig),
		"get_k8s_namespace": hooks.K8sNamespaceHook(k8sNamespace),
	})
}

func securityFromHeaders(r *http.Request) (any, error) {
	credentials := &Credentials{
		IDToken:      r.Header.Get("x-id-token"),
		RefreshToken: r.Header.Get("x-refresh-token"),
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		credentials.AuthToken = strings.TrimPrefix(auth, "Bearer ")
	}
	if credentials.AuthToken == "" && credentials.IDToken == "" {
		return nil, nil
	}
	return credentials, nil
}

// tokenClaims decodes a JWT payload without verifying the signature. The
// auth proxy in front of the service is the verifier.
func tokenClaims(token string) (map[string]any, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, fmt.Errorf("token is not a JWT")
	}
	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		return nil, fmt.Errorf("decoding token payload: %w", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parsing token payload: %w", err)
	}
	return claims, nil
}

func stringClaim(claims map[string]any, name string) string {
	value, _ := claims[name].(string)
	return value
}

func onAuth(ctx context.Context, rawCredentials any) (*checks.UserInfo, error) {
	credentials, ok := rawCredentials.(*Credentials)
	if !ok || credentials == nil || credentials.AuthToken == "" {
		return nil, jsonapi.NewForbiddenError(
			"Missing authentication or ID token",
			"Potentially missing authenticating proxy",
		)
	}

	claims, err := tokenClaims(credentials.AuthToken)
	if err != nil {
		return nil, jsonapi.NewUnauthorizedError("Invalid authentication token", err.Error())
	}
	if credentials.IDToken != "" {
		idClaims, err := tokenClaims(credentials.IDToken)
		if err != nil {
			return nil, jsonapi.NewUnauthorizedError("Invalid ID token", err.Error())
		}
		for name, value := range idClaims {
			claims[name] = value
		}
	}

	userIDClaim := os.Getenv("RH_CHECK_USER_ID_CLAIM")
	if userIDClaim == "" {
		userIDClaim = "sub"
	}
	usernameClaim := os.Getenv("RH_CHECK_USERNAME_CLAIM")
	if usernameClaim == "" {
		usernameClaim = "preferred_username"
	}

	userID := stringClaim(claims, userIDClaim)
	username := stringClaim(claims, usernameClaim)
	if userID == "" || username == "" {
		return nil, jsonapi.NewUnauthorizedError(
			"Missing user identification",
			"Username or user id missing",
		)
	}

	return &checks.UserInfo{
		UserID:       userID,
		Username:     username,
		AccessToken:  credentials.AuthToken,
		RefreshToken: credentials.RefreshToken,
	}, nil
}

// k8sConfig prefers the in-cluster service account; outside a cluster it
// loads the kubeconfig, honoring RH_CHECK_KUBE_CONTEXT.
func k8sConfig(ctx context.Context) (*rest.Config, error) {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return rest.InClusterConfig()
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{CurrentContext: os.Getenv("RH_CHECK_KUBE_CONTEXT")},
	).ClientConfig()
}

func k8sNamespace(ctx context.Context) (string, error) {
	return "resource-health", nil
}

func cronjobAccess(ctx context.Context, user *checks.UserInfo, cronjob *batchv1.CronJob) error {
	if user == nil || cronjob.Annotations["owner"] != user.Username {
		return jsonapi.NewForbiddenError("Access denied", "Not the owner of this check")
	}
	return nil
}

// cronjobCreate stamps the owner annotation the access hook relies on and
// makes sure the user has an offline-token secret for authenticated probes.
func cronjobCreate(ctx context.Context, client kubernetes.Interface, namespace string, user *checks.UserInfo, cronjob *batchv1.CronJob) error {
	if user == nil {
		return jsonapi.NewForbiddenError("Access denied", "No authenticated user")
	}
	if cronjob.Annotations == nil {
		cronjob.Annotations = map[string]string{}
	}
	cronjob.Annotations["owner"] = user.Username

	secretName := fmt.Sprintf("resource-health-%s-offline-secrett", user.Username)
	_, err := client.CoreV1().Secrets(namespace).Get(ctx, secretName, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}

	if user.RefreshToken == "" {
		return &jsonapi.APIError{Object: jsonapi.Error{
			Status: "404",
			Code:   "MissingOfflineToken",
			Title:  "Missing offline token, please create at least one check using the website",
		}}
	}
	_, err = client.CoreV1().Secrets(namespace).Create(ctx, &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretName,
			Namespace: namespace,
		},
		StringData: map[string]string{"offline_token": user.RefreshToken},
	}, metav1.CreateOptions{})
	return err
}

func mockUsername(ctx context.Context, user *checks.UserInfo) (string, error) {
	if user == nil {
		return "", nil
	}
	return user.Username, nil
}
