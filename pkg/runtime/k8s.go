package runtime

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/utils/ptr"
)

// K8sRuntime executes Actor runs as Kubernetes Jobs, implementing the
// single Execute/Stop contract the rest of this package exposes.
type K8sRuntime struct {
	client    *kubernetes.Clientset
	namespace string
}

// NewK8sRuntime builds a clientset: in-cluster config first, falling
// back to $KUBECONFIG or ~/.kube/config.
func NewK8sRuntime(namespace string) (*K8sRuntime, error) {
	cfg, err := k8sConfig()
	if err != nil {
		return nil, fmt.Errorf("k8s runtime: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("k8s runtime: %w", err)
	}
	return &K8sRuntime{client: client, namespace: namespace}, nil
}

func k8sConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

func (k *K8sRuntime) Name() string { return "k8s" }

func (k *K8sRuntime) jobName(runID string) string {
	return "crawlee-run-" + runID
}

func (k *K8sRuntime) Execute(ctx context.Context, spec ContainerSpec, sink LogSink) (ExecResult, error) {
	env := make([]corev1.EnvVar, 0, len(spec.Env))
	for key, val := range spec.Env {
		env = append(env, corev1.EnvVar{Name: key, Value: val})
	}

	name := k.jobName(spec.RunID)
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{"crawlee-cloud.run-id": spec.RunID},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.To(int32(0)),
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{{
						Name:  "actor",
						Image: spec.Image,
						Env:   env,
					}},
				},
			},
		},
	}
	if spec.Timeout > 0 {
		secs := int64(spec.Timeout.Seconds())
		job.Spec.ActiveDeadlineSeconds = &secs
	}

	if _, err := k.client.BatchV1().Jobs(k.namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return ExecResult{}, fmt.Errorf("create job: %w", err)
	}
	defer k.deleteJob(context.Background(), name)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var loggedPod string
	for {
		select {
		case <-ctx.Done():
			_ = k.Stop(context.Background(), spec.RunID, 10*time.Second)
			return ExecResult{ExitCode: 143, TimedOut: true}, nil
		case <-ticker.C:
			current, err := k.client.BatchV1().Jobs(k.namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				continue
			}

			if loggedPod == "" {
				if pod := k.findPod(ctx, spec.RunID); pod != "" {
					loggedPod = pod
					go k.streamPodLogs(ctx, pod, sink)
				}
			}

			for _, cond := range current.Status.Conditions {
				if cond.Status != corev1.ConditionTrue {
					continue
				}
				switch cond.Type {
				case batchv1.JobComplete:
					return ExecResult{ExitCode: 0}, nil
				case batchv1.JobFailed:
					return ExecResult{ExitCode: k.exitCode(ctx, spec.RunID)}, nil
				}
			}
		}
	}
}

func (k *K8sRuntime) findPod(ctx context.Context, runID string) string {
	pods, err := k.client.CoreV1().Pods(k.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("job-name=%s", k.jobName(runID)),
	})
	if err != nil || len(pods.Items) == 0 {
		return ""
	}
	return pods.Items[0].Name
}

func (k *K8sRuntime) exitCode(ctx context.Context, runID string) int {
	pods, err := k.client.CoreV1().Pods(k.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("job-name=%s", k.jobName(runID)),
	})
	if err != nil || len(pods.Items) == 0 {
		return 1
	}
	for _, status := range pods.Items[0].Status.ContainerStatuses {
		if status.State.Terminated != nil {
			return int(status.State.Terminated.ExitCode)
		}
	}
	return 1
}

func (k *K8sRuntime) streamPodLogs(ctx context.Context, podName string, sink LogSink) {
	req := k.client.CoreV1().Pods(k.namespace).GetLogs(podName, &corev1.PodLogOptions{Follow: true})
	stream, err := req.Stream(ctx)
	if err != nil {
		return
	}
	defer stream.Close()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		sink(LogLine{
			Stream:    "stdout",
			Level:     classifyLevel("stdout", line),
			Message:   line,
			Timestamp: time.Now(),
		})
	}
}

func (k *K8sRuntime) deleteJob(ctx context.Context, name string) {
	policy := metav1.DeletePropagationBackground
	_ = k.client.BatchV1().Jobs(k.namespace).Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &policy})
}

func (k *K8sRuntime) Stop(ctx context.Context, runID string, grace time.Duration) error {
	_, err := k.client.BatchV1().Jobs(k.namespace).Get(ctx, k.jobName(runID), metav1.GetOptions{})
	if err != nil {
		return nil
	}
	k.deleteJob(ctx, k.jobName(runID))
	return nil
}
