package handler

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/CloudDetail/kubecrud/client"
	"github.com/CloudDetail/kubecrud/model/resource"
)

func projectNamespace(m resource.Manifest) (any, error) {
	var ns corev1.Namespace
	if err := m.Into(&ns); err != nil {
		return nil, err
	}
	finalizers := make([]string, 0, len(ns.Spec.Finalizers))
	for _, f := range ns.Spec.Finalizers {
		finalizers = append(finalizers, string(f))
	}
	return client.Namespace{
		Metadata:   client.NamespaceMetadata{Name: ns.Name},
		Status:     string(ns.Status.Phase),
		Kind:       ns.Kind,
		Spec:       client.NamespaceSpec{Finalizers: finalizers},
		APIVersion: ns.APIVersion,
	}, nil
}

func projectPod(m resource.Manifest) (any, error) {
	var pod corev1.Pod
	if err := m.Into(&pod); err != nil {
		return nil, err
	}

	containers := make([]client.Container, 0, len(pod.Spec.Containers))
	for _, c := range pod.Spec.Containers {
		ports := make([]client.ContainerPort, 0, len(c.Ports))
		for _, p := range c.Ports {
			ports = append(ports, client.ContainerPort{ContainerPort: p.ContainerPort})
		}
		containers = append(containers, client.Container{Name: c.Name, Image: c.Image, Ports: ports})
	}
	statuses := make([]client.ContainerStatus, 0, len(pod.Status.ContainerStatuses))
	for _, cs := range pod.Status.ContainerStatuses {
		statuses = append(statuses, client.ContainerStatus{Ready: cs.Ready, Image: cs.Image})
	}

	var securityContext any
	if pod.Spec.SecurityContext != nil {
		securityContext = pod.Spec.SecurityContext
	}

	return client.Pod{
		Metadata: client.PodMetadata{
			Name:      pod.Name,
			Labels:    pod.Labels,
			Namespace: pod.Namespace,
		},
		Status: client.PodStatus{
			Phase:             string(pod.Status.Phase),
			ContainerStatuses: statuses,
			PodIP:             pod.Status.PodIP,
			HostIP:            pod.Status.HostIP,
		},
		Kind: pod.Kind,
		Spec: client.PodSpec{
			ServiceAccount:     pod.Spec.DeprecatedServiceAccount,
			NodeName:           pod.Spec.NodeName,
			SecurityContext:    securityContext,
			ServiceAccountName: pod.Spec.ServiceAccountName,
			Containers:         containers,
		},
		APIVersion: pod.APIVersion,
	}, nil
}

func projectService(m resource.Manifest) (any, error) {
	var svc corev1.Service
	if err := m.Into(&svc); err != nil {
		return nil, err
	}
	ports := make([]client.ServicePort, 0, len(svc.Spec.Ports))
	for _, p := range svc.Spec.Ports {
		ports = append(ports, client.ServicePort{
			Port:       p.Port,
			Protocol:   string(p.Protocol),
			TargetPort: p.TargetPort.String(),
		})
	}
	return client.Service{
		Metadata:   client.ServiceMetadata{Name: svc.Name, Namespace: svc.Namespace},
		Kind:       svc.Kind,
		Spec: client.ServiceSpec{
			Selector:  svc.Spec.Selector,
			ClusterIP: svc.Spec.ClusterIP,
			Type:      string(svc.Spec.Type),
			Ports:     ports,
		},
		APIVersion: svc.APIVersion,
	}, nil
}
